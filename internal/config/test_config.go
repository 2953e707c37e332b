package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API = APIConfig{
		BaseURL:     "http://127.0.0.1:8000/api/v1",
		StoreURL:    "http://127.0.0.1:8000/api/v1",
		Timeout:     5 * time.Second,
		UserAgent:   "wikan-test/1.0",
		UserID:      1,
		SearchLimit: 20,
	}
	cfg.Store = StoreConfig{
		Path:    "",
		Timeout: 1 * time.Second,
	}
	cfg.UI.SearchDebounce = 10 * time.Millisecond
	cfg.Log = LogConfig{Level: "off"}
	return cfg
}
