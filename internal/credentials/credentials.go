package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/ini.v1"
)

const (
	MFASection = "mfa"

	KeyAccessKeyID     = "aws_access_key_id"
	KeySecretAccessKey = "aws_secret_access_key"
	KeySessionToken    = "aws_session_token"
	KeyExpiration      = "expiration"
)

// Store is a section-keyed credentials file such as ~/.aws/credentials
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// ReadSection returns the keys of section name. ok is false when the file or
// the section does not exist.
func (s *Store) ReadSection(name string) (values map[string]string, ok bool, err error) {
	cfg, err := ini.Load(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load credentials %s: %w", s.Path, err)
	}

	section, err := cfg.GetSection(name)
	if err != nil {
		return nil, false, nil
	}

	return section.KeysHash(), true, nil
}

// UpdateSection sets values in section name, creating the file and section
// as needed. Other sections and keys are kept.
func (s *Store) UpdateSection(name string, values map[string]string) error {
	cfg, err := ini.LooseLoad(s.Path)
	if err != nil {
		return fmt.Errorf("load credentials %s: %w", s.Path, err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	section := cfg.Section(name)
	for _, key := range keys {
		section.Key(key).SetValue(values[key])
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := cfg.SaveTo(s.Path); err != nil {
		return fmt.Errorf("save credentials %s: %w", s.Path, err)
	}
	return os.Chmod(s.Path, 0600)
}

// SessionValid reports whether the mfa section holds a session that expires
// after now. A missing file, section or expiration is not valid.
func (s *Store) SessionValid(now time.Time) (bool, error) {
	values, ok, err := s.ReadSection(MFASection)
	if err != nil || !ok {
		return false, err
	}

	raw, ok := values[KeyExpiration]
	if !ok || raw == "" {
		return false, nil
	}

	expiry, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false, fmt.Errorf("parse %s in [%s]: %w", KeyExpiration, MFASection, err)
	}

	return expiry.After(now), nil
}
