package util

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// PasswordHash bundles an argon2id digest with the salt and parameters used
// to derive it, so stored hashes stay verifiable after a parameter change.
type PasswordHash struct {
	Params Argon2idParams `json:"params"`
	Salt   []byte         `json:"salt"`
	Hash   []byte         `json:"hash"`
}

// HashPassword derives a fresh argon2id hash with a random 16-byte salt.
func HashPassword(password string) (PasswordHash, error) {
	salt, err := RandomBytes(16)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("generating salt: %w", err)
	}
	params := DefaultArgon2idParams()
	hash, err := DeriveArgon2idKey(password, salt, params)
	if err != nil {
		return PasswordHash{}, err
	}
	return PasswordHash{Params: params, Salt: salt, Hash: hash}, nil
}

// Verify reports whether password matches the stored hash, in constant time.
func (p PasswordHash) Verify(password string) bool {
	ok, err := CompareArgon2idKey(password, p.Salt, p.Params, p.Hash)
	return err == nil && ok
}

func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if params.KeyLen != 32 {
		return nil, fmt.Errorf("argon2id key length must be 32 bytes")
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return key, nil
}

func CompareArgon2idKey(passphrase string, salt []byte, params Argon2idParams, expectedKey []byte) (bool, error) {
	key, err := DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, expectedKey) == 1, nil
}
