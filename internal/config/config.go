package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/wikan/internal/validation"
)

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	List   ListConfig   `mapstructure:"list"`
	UI     UIConfig     `mapstructure:"ui"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Keys   KeyConfig    `mapstructure:"keys"`
}

// APIConfig describes the analysis backend and the personal article store.
// StoreURL falls back to BaseURL when empty.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	StoreURL    string        `mapstructure:"store_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	UserID      int64         `mapstructure:"user_id"`
	SearchLimit int           `mapstructure:"search_limit"`
}

type ListConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type UIConfig struct {
	SearchDebounce   time.Duration `mapstructure:"search_debounce"`
	SummaryPreview   int           `mapstructure:"summary_preview"`
	WordWrapMaxWidth int           `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int           `mapstructure:"word_wrap_min_width"`
	Opener           string        `mapstructure:"opener"`
	Colors           UIColors      `mapstructure:"colors"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type StoreConfig struct {
	Path        string        `mapstructure:"path"`
	SearchIndex string        `mapstructure:"search_index"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Listen  string        `mapstructure:"listen"`
	Prefix  string        `mapstructure:"prefix"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type KeyConfig struct {
	Modifier string `mapstructure:"modifier"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".wikan")

	return &Config{
		API: APIConfig{
			BaseURL:     "http://localhost:8000/api/v1",
			Timeout:     30 * time.Second,
			UserAgent:   "wikan/1.0 (https://github.com/pders01/wikan)",
			UserID:      1,
			SearchLimit: 20,
		},
		List: ListConfig{
			PageSize: 10,
		},
		UI: UIConfig{
			SearchDebounce:   500 * time.Millisecond,
			SummaryPreview:   150,
			WordWrapMaxWidth: 120,
			WordWrapMinWidth: 40,
			Opener:           getDefaultOpener(),
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
		},
		Store: StoreConfig{
			Path:        filepath.Join(dataDir, "articles.db"),
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
			Timeout:     1 * time.Second,
		},
		Server: ServerConfig{
			Listen:  ":8000",
			Prefix:  "/api/v1",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "wikan.log"),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// flatten turns the config into dotted viper keys. Durations are rendered as
// strings so the same map serves both viper defaults and the TOML writer.
func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"api.base_url":           cfg.API.BaseURL,
		"api.store_url":          cfg.API.StoreURL,
		"api.timeout":            cfg.API.Timeout.String(),
		"api.user_agent":         cfg.API.UserAgent,
		"api.user_id":            cfg.API.UserID,
		"api.search_limit":       cfg.API.SearchLimit,
		"list.page_size":         cfg.List.PageSize,
		"ui.search_debounce":     cfg.UI.SearchDebounce.String(),
		"ui.summary_preview":     cfg.UI.SummaryPreview,
		"ui.word_wrap_max_width": cfg.UI.WordWrapMaxWidth,
		"ui.word_wrap_min_width": cfg.UI.WordWrapMinWidth,
		"ui.opener":              cfg.UI.Opener,
		"ui.colors.primary":      cfg.UI.Colors.Primary,
		"ui.colors.secondary":    cfg.UI.Colors.Secondary,
		"ui.colors.accent":       cfg.UI.Colors.Accent,
		"ui.colors.text":         cfg.UI.Colors.Text,
		"ui.colors.muted":        cfg.UI.Colors.Muted,
		"ui.colors.error":        cfg.UI.Colors.Error,
		"ui.colors.success":      cfg.UI.Colors.Success,
		"store.path":             cfg.Store.Path,
		"store.search_index":     cfg.Store.SearchIndex,
		"store.timeout":          cfg.Store.Timeout.String(),
		"server.listen":          cfg.Server.Listen,
		"server.prefix":          cfg.Server.Prefix,
		"server.timeout":         cfg.Server.Timeout.String(),
		"log.level":              cfg.Log.Level,
		"log.file":               cfg.Log.File,
		"keys.modifier":          cfg.Keys.Modifier,
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range flatten(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "wikan")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WIKAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate normalizes endpoint URLs and rejects values the client cannot work with.
func (c *Config) Validate() error {
	endpoints := validation.NewEndpointValidator()

	base, err := endpoints.ValidateAndNormalize(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	c.API.BaseURL = base

	if c.API.StoreURL == "" {
		c.API.StoreURL = base
	} else {
		store, err := endpoints.ValidateAndNormalize(c.API.StoreURL)
		if err != nil {
			return fmt.Errorf("api.store_url: %w", err)
		}
		c.API.StoreURL = store
	}

	if c.List.PageSize < 1 || c.List.PageSize > 100 {
		return fmt.Errorf("list.page_size must be between 1 and 100, got %d", c.List.PageSize)
	}
	if c.API.SearchLimit < 1 || c.API.SearchLimit > 50 {
		return fmt.Errorf("api.search_limit must be between 1 and 50, got %d", c.API.SearchLimit)
	}
	if c.UI.SearchDebounce < 0 {
		return fmt.Errorf("ui.search_debounce cannot be negative")
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Store.SearchIndex = expandPath(cfg.Store.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// Save writes the config as TOML, one table per section.
func Save(config *Config, path string) error {
	doc := map[string]any{}
	for key, value := range flatten(config) {
		parts := strings.Split(key, ".")
		table := doc
		for _, part := range parts[:len(parts)-1] {
			next, ok := table[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				table[part] = next
			}
			table = next
		}
		table[parts[len(parts)-1]] = value
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
