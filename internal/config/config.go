package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// RAG service settings
	BaseURL        string
	RequestTimeout time.Duration
	StreamTimeout  time.Duration // 0 means no timeout

	// History settings
	HistoryBackend string
	HistoryPath    string
	HistoryKey     string

	// Folder watcher settings
	WatchDir        string
	WatchExtensions []string
	WatchDebounce   time.Duration

	// Output settings
	RenderMarkdown bool
	Verbose        bool
	LogPath        string
}

// Supported history backends
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// RAG service defaults
		BaseURL:        "http://localhost:5000",
		RequestTimeout: 120 * time.Second,
		StreamTimeout:  0,

		// History defaults
		HistoryBackend: BackendFile,
		HistoryPath:    expandHome("~/.rag-chat/history"),
		HistoryKey:     "chatHistory",

		// Watcher defaults
		WatchExtensions: []string{".pdf", ".docx", ".txt", ".xlsx"},
		WatchDebounce:   2 * time.Second,

		// Output defaults
		RenderMarkdown: true,
		Verbose:        false,
		LogPath:        expandHome("~/.rag-chat/rag-chat.log"),
	}
}

// ApplyEnv overrides defaults with RAG_* environment variables
func (c *Config) ApplyEnv() {
	if v := GetEnv("RAG_BASE_URL"); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := GetEnv("RAG_HISTORY_BACKEND"); v != "" {
		c.HistoryBackend = v
	}
	if v := GetEnv("RAG_HISTORY_PATH"); v != "" {
		c.HistoryPath = expandHome(v)
	}
	if v := GetEnv("RAG_WATCH_DIR"); v != "" {
		c.WatchDir = expandHome(v)
	}
	if v := GetEnv("RAG_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base URL must start with http:// or https://")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.StreamTimeout < 0 {
		return fmt.Errorf("stream timeout cannot be negative")
	}
	if c.HistoryBackend != BackendFile && c.HistoryBackend != BackendBolt {
		return fmt.Errorf("history backend must be %q or %q", BackendFile, BackendBolt)
	}
	if c.HistoryPath == "" {
		return fmt.Errorf("history path cannot be empty")
	}
	if c.HistoryKey == "" {
		return fmt.Errorf("history key cannot be empty")
	}
	if c.WatchDir != "" && c.WatchDebounce <= 0 {
		return fmt.Errorf("watch debounce must be positive")
	}
	return nil
}

// ExpandHome is exported for paths given on the command line
func ExpandHome(path string) string {
	return expandHome(path)
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = func(key string) string {
	// Will be replaced with os.Getenv in main
	return ""
}
