package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/internal/util"
	"github.com/clearmind/redsheet/session"
	"github.com/clearmind/redsheet/storage"
	bboltstorage "github.com/clearmind/redsheet/storage/bbolt"
)

var (
	useraddDataDir  string
	useraddRole     string
	useraddPassword string
)

var useraddCmd = &cobra.Command{
	Use:   "useradd <username>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := session.ParseRole(useraddRole)
		if string(role) != useraddRole {
			return fmt.Errorf("unknown role %q (guest, pentester or admin)", useraddRole)
		}

		password := useraddPassword
		if password == "" {
			fmt.Print("Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if len(password) < 10 {
			return errors.New("password must be at least 10 characters")
		}

		repo, err := bboltstorage.NewRepositoryFromFile(
			filepath.Join(useraddDataDir, "redsheet.db"), nil)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer repo.Close()

		username, err := createUser(repo, args[0], password, role)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s user %q\n", role, username)
		return nil
	},
}

func createUser(repo storage.Repository, rawName, password string, role session.Role) (string, error) {
	username := engagement.NormalizeUsername(rawName)
	if _, err := repo.Get(engagement.KindUser, username); err == nil {
		return "", fmt.Errorf("user %q already exists", username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	user := engagement.User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		Password:  hash,
		CreatedAt: time.Now(),
	}
	if err := user.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	if err := repo.Put(engagement.KindUser, username, data); err != nil {
		return "", fmt.Errorf("storing user: %w", err)
	}
	return username, nil
}

func init() {
	rootCmd.AddCommand(useraddCmd)
	useraddCmd.Flags().StringVar(&useraddDataDir, "data-dir", "./data", "Directory for persistent data")
	useraddCmd.Flags().StringVar(&useraddRole, "role", "pentester", "Account role (guest, pentester, admin)")
	useraddCmd.Flags().StringVar(&useraddPassword, "password", "", "Password (prompted when omitted)")
}
