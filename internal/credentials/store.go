package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"autosub/internal/fileutil"
)

// Service and key names for the correction API key.
const (
	Service   = "autosub"
	APIKeyKey = "gemini_api_key"
)

// ErrNotFound is returned when a secret is not stored.
var ErrNotFound = errors.New("credential not found")

// Store is a file-backed secret store. Secrets are kept in a TOML file with
// mode 0600, grouped by service. Reads and writes take a file lock so
// concurrent CLI invocations do not clobber each other.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the secret stored under service/name.
func (s *Store) Get(service, name string) (string, error) {
	var value string
	err := s.withLock(func() error {
		data, err := s.load()
		if err != nil {
			return err
		}
		v, ok := data[service][name]
		if !ok || strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, service, name)
		}
		value = v
		return nil
	})
	return value, err
}

// Set stores value under service/name, creating the file if needed.
func (s *Store) Set(service, name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("credential value is empty")
	}
	return s.withLock(func() error {
		data, err := s.load()
		if err != nil {
			return err
		}
		if data[service] == nil {
			data[service] = map[string]string{}
		}
		data[service][name] = value
		return s.save(data)
	})
}

// Delete removes service/name. Deleting a missing secret returns ErrNotFound.
func (s *Store) Delete(service, name string) error {
	return s.withLock(func() error {
		data, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := data[service][name]; !ok {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, service, name)
		}
		delete(data[service], name)
		if len(data[service]) == 0 {
			delete(data, service)
		}
		return s.save(data)
	})
}

func (s *Store) withLock(fn func() error) error {
	if strings.TrimSpace(s.path) == "" {
		return errors.New("credential store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock credential store: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func (s *Store) load() (map[string]map[string]string, error) {
	data := map[string]map[string]string{}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, fmt.Errorf("read credential store: %w", err)
	}
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse credential store: %w", err)
	}
	return data, nil
}

func (s *Store) save(data map[string]map[string]string) error {
	encoded, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("write credential store: %w", err)
	}
	return nil
}
