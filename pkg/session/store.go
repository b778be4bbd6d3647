// Package session persists authenticated sessions to disk, one JSON file
// per account key. Writes are atomic (temp file + rename) so a crash never
// leaves a truncated session behind; a file that fails to parse is treated
// as absent and removed, forcing a fresh login.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"igunfollow/pkg/account"
	"igunfollow/pkg/logger"
)

// Store manages session files under a single directory
type Store struct {
	dir string
	log logger.Logger
}

// NewStore creates a session store rooted at dir, creating it if needed.
// An empty dir selects the per-user default location.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{dir: dir, log: logger.GetLogger()}, nil
}

// DefaultDir returns the platform default session directory
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "igunfollow", "sessions"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "igunfollow", "sessions"), nil
		}
		return filepath.Join(home, "igunfollow", "sessions"), nil
	default:
		return filepath.Join(home, ".config", "igunfollow", "sessions"), nil
	}
}

// Save persists the session for the given account key atomically
func (s *Store) Save(key string, sess *account.Session) error {
	if key == "" {
		return fmt.Errorf("account key is required")
	}
	if !sess.Valid() {
		return fmt.Errorf("refusing to save incomplete session")
	}

	path := s.path(key)
	tempPath := path + ".tmp"

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sess); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.log.DebugWithFields("session saved", map[string]interface{}{
		"account": key,
		"path":    path,
	})
	return nil
}

// Load returns the stored session for the account key, or nil if no usable
// session exists. A corrupt file is deleted, not surfaced as an error, so
// callers fall through to a fresh login.
func (s *Store) Load(key string) (*account.Session, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess account.Session
	if err := json.Unmarshal(data, &sess); err != nil || !sess.Valid() {
		s.log.WarnWithFields("discarding unusable session file", map[string]interface{}{
			"account": key,
			"path":    path,
		})
		_ = os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

// Delete removes the stored session for the account key. A missing file is
// not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns the account keys that have a stored session
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".session.json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".session.json"))
	}
	return keys, nil
}

// Touch refreshes the capture timestamp and re-persists the session.
// Called after a run so rolling cookies survive restarts.
func (s *Store) Touch(key string, sess *account.Session) error {
	sess.CapturedAt = time.Now()
	return s.Save(key, sess)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".session.json")
}

// sanitizeKey keeps account keys filesystem-safe. Instagram usernames only
// allow letters, digits, dots and underscores, so anything else is mapped
// to an underscore.
func sanitizeKey(key string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
	return strings.ToLower(mapped)
}
