package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	configFileName  = "config.json"
	configDirName   = "marginalia"
	dataFileName    = "library.db"
	MaxRecentlyRead = 10 // Maximum number of recently read books to track
)

// ExplainConfig holds the AI provider settings for the explain action
type ExplainConfig struct {
	Platform string `json:"platform,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
}

// RecentlyReadEntry represents a recently read book
type RecentlyReadEntry struct {
	BookID   int64     `json:"book_id"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}

// Config holds the application configuration
type Config struct {
	DatabasePath string              `json:"database_path,omitempty"`
	LogPath      string              `json:"log_path,omitempty"`
	Explain      ExplainConfig       `json:"explain,omitempty"`
	RecentlyRead []RecentlyReadEntry `json:"recently_read,omitempty"`

	// Path to config file (not persisted)
	path string `json:"-"`
}

// Load loads configuration from the config file
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from an explicit path
func LoadFrom(configPath string) (*Config, error) {
	cfg := &Config{
		path: configPath,
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		// Config doesn't exist, return defaults
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.path = configPath
	return cfg, nil
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	// Ensure directory exists
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// Database returns the library database path, defaulting to the config
// directory next to the config file
func (c *Config) Database() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(filepath.Dir(c.path), dataFileName)
}

// AddRecentlyRead adds a book to the recently read list
func (c *Config) AddRecentlyRead(bookID int64, title string) error {
	// Remove existing entry for this book if present
	newList := make([]RecentlyReadEntry, 0, MaxRecentlyRead)
	for _, entry := range c.RecentlyRead {
		if entry.BookID != bookID {
			newList = append(newList, entry)
		}
	}

	// Add new entry at the front
	entry := RecentlyReadEntry{
		BookID:   bookID,
		Title:    title,
		OpenedAt: time.Now(),
	}
	c.RecentlyRead = append([]RecentlyReadEntry{entry}, newList...)

	// Trim to max size
	if len(c.RecentlyRead) > MaxRecentlyRead {
		c.RecentlyRead = c.RecentlyRead[:MaxRecentlyRead]
	}

	return c.Save()
}

// GetRecentlyReadIDs returns the list of recently read book IDs
func (c *Config) GetRecentlyReadIDs() []int64 {
	ids := make([]int64, len(c.RecentlyRead))
	for i, entry := range c.RecentlyRead {
		ids[i] = entry.BookID
	}
	return ids
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}
