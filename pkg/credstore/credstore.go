package credstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Credentials is the persisted account binding for one instance. The wrapped
// protocol library keeps its own signal/session key material in its datastore;
// this file is the unit that ties an instance key to a paired device and is
// what gets removed on logout.
type Credentials struct {
	DeviceJID    string    `json:"deviceJid"`
	Platform     string    `json:"platform,omitempty"`
	BusinessName string    `json:"businessName,omitempty"`
	PushName     string    `json:"pushName,omitempty"`
	PairedAt     time.Time `json:"pairedAt,omitempty"`
}

// FileStore reads and writes one JSON credential document scoped to an
// instance key. Saves are last-write-wins, callers do not coordinate.
type FileStore struct {
	path string
}

func NewFileStore(dir string, key string) *FileStore {
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored credentials, or found=false when no credential
// file exists yet for this instance.
func (s *FileStore) Load() (*Credentials, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, false, err
	}
	return &creds, true, nil
}

func (s *FileStore) Save(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Delete removes the credential file. Missing file is not an error, logout
// must stay idempotent.
func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ListKeys returns the instance keys that have a credential file in dir.
func ListKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return keys, nil
}
