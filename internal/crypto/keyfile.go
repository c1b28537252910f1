package crypto

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// LoadOrGenerateKey returns the master key stored at path, generating a
// fresh random one on first run. The key file is written with 0600 so
// only the service account can read it.
func LoadOrGenerateKey(path string) ([]byte, error) {
	if key, err := os.ReadFile(path); err == nil {
		if len(key) != keySize {
			return nil, fmt.Errorf("key file %s has unexpected size %d", path, len(key))
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key dir: %w", err)
		}
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}
