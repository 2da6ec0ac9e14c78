package fs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
)

const settingsFileName = "settings.toml"

// settingsDoc is the on-disk TOML layout of the settings file.
type settingsDoc struct {
	BaseURL              string                `toml:"base_url"`
	FirstLaunchCompleted bool                  `toml:"first_launch_completed"`
	RegionalCodes        []domain.RegionalCode `toml:"regional_codes"`
}

// SettingsFile implements ports.SettingsStore using a TOML file.
type SettingsFile struct {
	dir      string
	defaults domain.Settings

	mu sync.Mutex
}

// NewSettingsFile creates a settings store in dir. defaults is returned for
// any value the file does not set; a missing file yields defaults with
// IsFirstLaunch true.
func NewSettingsFile(dir string, defaults domain.Settings) *SettingsFile {
	return &SettingsFile{dir: dir, defaults: defaults}
}

// Path returns the full path to the settings file.
func (s *SettingsFile) Path() string {
	return filepath.Join(s.dir, settingsFileName)
}

// Settings reads the settings file.
func (s *SettingsFile) Settings() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return domain.Settings{}, err
	}
	return s.toSettings(doc)
}

// FinishFirstLaunch marks the first launch as completed. It only writes when
// the flag actually changes.
func (s *SettingsFile) FinishFirstLaunch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.FirstLaunchCompleted {
		return nil
	}
	doc.FirstLaunchCompleted = true
	return s.save(doc)
}

// SetBaseURL persists a new base endpoint.
func (s *SettingsFile) SetBaseURL(raw string) error {
	if _, err := endpoint.ParseURL(raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.BaseURL = raw
	return s.save(doc)
}

func (s *SettingsFile) load() (settingsDoc, error) {
	var doc settingsDoc

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode settings %s: %w", s.Path(), err)
	}
	return doc, nil
}

func (s *SettingsFile) save(doc settingsDoc) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := writeFileAtomic(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *SettingsFile) toSettings(doc settingsDoc) (domain.Settings, error) {
	out := domain.Settings{
		BaseEndpoint:  s.defaults.BaseEndpoint,
		RegionalCodes: s.defaults.RegionalCodes,
		IsFirstLaunch: !doc.FirstLaunchCompleted,
	}

	if doc.BaseURL != "" {
		u, err := endpoint.ParseURL(doc.BaseURL)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("settings base_url: %w", err)
		}
		out.BaseEndpoint = u
	}
	if len(doc.RegionalCodes) > 0 {
		out.RegionalCodes = doc.RegionalCodes
	}
	if out.BaseEndpoint != nil {
		cp := *out.BaseEndpoint
		out.BaseEndpoint = &cp
	}
	return out, nil
}

// DefaultSettings returns defaults pointing at base.
func DefaultSettings(base *url.URL) domain.Settings {
	return domain.Settings{
		BaseEndpoint:  base,
		IsFirstLaunch: true,
	}
}
