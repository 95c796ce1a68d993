package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	TMDB      TMDBSettings      `json:"tmdb"`
	OMDB      OMDBSettings      `json:"omdb"`
	RateLimit RateLimitSettings `json:"rateLimit"`
	Batch     BatchSettings     `json:"batch"`
	Storage   StorageSettings   `json:"storage"`
	Log       LogConfig         `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type TMDBSettings struct {
	APIKey   string `json:"apiKey"`
	Language string `json:"language"`
}

// OMDBSettings configures the optional awards provider. An empty key
// disables award lookups without disabling anything else.
type OMDBSettings struct {
	APIKey string `json:"apiKey"`
}

// RateLimitSettings mirrors the TMDB admission window: at most MaxRequests
// calls inside any PeriodSeconds span.
type RateLimitSettings struct {
	MaxRequests   int `json:"maxRequests"`
	PeriodSeconds int `json:"periodSeconds"`
}

type BatchSettings struct {
	ItemDelayMs int `json:"itemDelayMs"`
}

// StorageSettings locates the on-disk key/value store holding caches and
// collections.
type StorageSettings struct {
	Directory string `json:"directory"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server:    ServerSettings{Host: "0.0.0.0", Port: 8765},
		TMDB:      TMDBSettings{APIKey: "", Language: "en-US"},
		OMDB:      OMDBSettings{APIKey: ""},
		RateLimit: RateLimitSettings{MaxRequests: 40, PeriodSeconds: 10},
		Batch:     BatchSettings{ItemDelayMs: 300},
		Storage:   StorageSettings{Directory: "data"},
		Log: LogConfig{
			File:       "data/logs/backend.log",
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for settings introduced after the config was written
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "0.0.0.0"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8765
	}
	if strings.TrimSpace(s.TMDB.Language) == "" {
		s.TMDB.Language = "en-US"
	}
	if s.RateLimit.MaxRequests == 0 {
		s.RateLimit.MaxRequests = 40
	}
	if s.RateLimit.PeriodSeconds == 0 {
		s.RateLimit.PeriodSeconds = 10
	}
	if s.Batch.ItemDelayMs == 0 {
		s.Batch.ItemDelayMs = 300
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = "data"
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "data/logs/backend.log"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
