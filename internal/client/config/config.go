package config

import (
	"os"
	"time"
)

// EnvConfigFile names the environment variable holding the JSON config path.
const EnvConfigFile = "CRATES_CLIENT_CONFIG"

// Config holds runtime settings for the registry CLI.
type Config struct {
	ServerEndpointAddr string
	Token              string
	CallTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.CallTimeout = 30 * time.Second
}

// LoadConfig constructs a Config from defaults overlaid with the JSON file
// at path. An empty path falls back to CRATES_CLIENT_CONFIG; when both are
// empty only defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return cfg, nil
	}
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
