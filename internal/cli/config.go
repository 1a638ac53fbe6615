package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/fsm/internal/server"
	"github.com/matzehuels/fsm/pkg/repo"
)

// Config is the contents of config.toml.
//
//	strict = true
//	check_versions = false
//	max_depth = 0
//	repositories = ["https://mirror.example.com/fedora.yaml", "./local.toml"]
//
//	[cache]
//	ttl = "1h"
//	redis_addr = "localhost:6379"
//
//	[store]
//	path = "/var/lib/fsm/fsm.db"
//
//	[server]
//	addr = "127.0.0.1:8080"
type Config struct {
	Strict        bool         `toml:"strict"`
	CheckVersions bool         `toml:"check_versions"`
	MaxDepth      int          `toml:"max_depth"`
	Repositories  []string     `toml:"repositories"`
	Cache         CacheConfig  `toml:"cache"`
	Store         StoreConfig  `toml:"store"`
	Server        ServerConfig `toml:"server"`
}

type CacheConfig struct {
	TTL       duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
	Dir       string   `toml:"dir"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration reads "90s"-style strings.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		Cache:  CacheConfig{TTL: duration(repo.DefaultTTL)},
		Server: ServerConfig{Addr: server.DefaultAddr},
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig. A missing
// file is an error only when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}
