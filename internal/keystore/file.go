package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const fileKeyName = "key.json"

// FileStorage keeps the keypair as a base58 JSON string in a config
// directory, created on first Put with owner-only permissions.
type FileStorage struct {
	dir string
}

// NewFileStorage stores keys under dir (e.g. ~/.config/<app>).
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (s *FileStorage) path() string {
	return filepath.Join(s.dir, fileKeyName)
}

func (s *FileStorage) Get(ctx context.Context) (solana.PrivateKey, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("decode keypair file: %w", err)
	}
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	return key, nil
}

func (s *FileStorage) Put(ctx context.Context, key solana.PrivateKey) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	data, err := json.Marshal(key.String())
	if err != nil {
		return fmt.Errorf("encode keypair: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0o600); err != nil {
		return fmt.Errorf("write keypair file: %w", err)
	}
	return nil
}
