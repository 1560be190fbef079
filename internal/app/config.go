package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/claudewire/claudewire/internal/tokensource"
)

// envPrefix namespaces the environment variables the loader reads;
// CLAUDEWIRE_SERVER__ADDR maps to server.addr.
const envPrefix = "CLAUDEWIRE_"

// TokenStorageType selects where the refresh token is persisted.
type TokenStorageType string

const (
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
)

// Config is the full application configuration, merged from defaults, an
// optional TOML file, and environment variables, in that order.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig configures the listening HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	MaxRequestBytes int64         `koanf:"max_request_bytes" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// UpstreamConfig configures the outbound Anthropic calls. The four timeouts
// are independent tiers: connection establishment, per-read inactivity on a
// stream, total non-streaming request duration, and total stream duration.
type UpstreamConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	StreamTimeout  time.Duration `koanf:"stream_timeout" validate:"gt=0"`
}

// AuthConfig configures credential storage.
type AuthConfig struct {
	Storage TokenStorageType `koanf:"storage" validate:"required,oneof=keyring file env"`

	// TokenFile is the token path for file storage; defaults under the
	// user config directory.
	TokenFile string `koanf:"token_file"`

	// EnvVariable is the variable read by env storage.
	EnvVariable string `koanf:"env_variable"`
}

// NewTokenStore constructs the configured token store.
func (c AuthConfig) NewTokenStore() (tokensource.TokenStore, error) {
	switch c.Storage {
	case TokenStorageTypeKeyring:
		return &tokensource.KeyringStore{Service: "claudewire", User: "anthropic"}, nil
	case TokenStorageTypeFile:
		path := c.TokenFile
		if path == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve default token path: %w", err)
			}
			path = filepath.Join(configDir, "claudewire", "token")
		}
		return &tokensource.FileStore{Path: path}, nil
	case TokenStorageTypeEnv:
		variable := c.EnvVariable
		if variable == "" {
			variable = "CLAUDEWIRE_REFRESH_TOKEN"
		}
		return &tokensource.EnvStore{Variable: variable}, nil
	default:
		return nil, fmt.Errorf("unknown token storage type %q", c.Storage)
	}
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":              "127.0.0.1:4000",
		"server.max_request_bytes": int64(10 << 20),
		"server.shutdown_timeout":  "5s",
		"upstream.base_url":        "https://api.anthropic.com",
		"upstream.connect_timeout": "10s",
		"upstream.read_timeout":    "60s",
		"upstream.request_timeout": "120s",
		"upstream.stream_timeout":  "600s",
		"auth.storage":             "keyring",
	}
}

// LoadConfig merges defaults, the optional TOML file at path, and
// CLAUDEWIRE_* environment variables, then validates the result. A missing
// file is only an error when the path was set explicitly.
func LoadConfig(path string, explicitPath bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			if explicitPath || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// CLAUDEWIRE_SERVER__ADDR -> server.addr
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
