// Package config resolves the console settings. Precedence, highest first:
// command-line flags, BORUTA_ADMIN_* environment variables (a .env file in
// the working directory is loaded into the environment first), the YAML
// config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. BORUTA_ADMIN_BASE_URL.
const EnvPrefix = "BORUTA_ADMIN"

// Keys.
const (
	KeyConfigFile    = "config"
	KeyBaseURL       = "base_url"
	KeyOAuthBaseURL  = "oauth_base_url"
	KeyClientID      = "client_id"
	KeyScope         = "scope"
	KeyCallbackPort  = "callback_port"
	KeySilentRefresh = "silent_refresh"
	KeyStoragePath   = "storage_path"
	KeyLogFile       = "log_file"
	KeyLogLevel      = "log_level"
	KeyScopesPath    = "scopes_path"
	KeyClientsPath   = "clients_path"
)

// DefaultCallbackPort serves the callback page at
// http://127.0.0.1:8765/oauth-callback, which must be a registered redirect
// uri of the admin client.
const DefaultCallbackPort = 8765

// Config is the resolved console configuration.
type Config struct {
	BaseURL       string
	OAuthBaseURL  string
	ClientID      string
	Scopes        []string
	CallbackPort  int
	SilentRefresh bool
	StoragePath   string
	LogFile       string
	LogLevel      string
	ScopesPath    string
	ClientsPath   string
}

// Dir returns ~/.boruta-admin.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".boruta-admin"), nil
}

// RegisterFlags declares the persistent flags every command understands.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfigFile, "", "config file (default ~/.boruta-admin/config.yaml)")
	flags.String("base-url", "", "Boruta admin API base URL")
	flags.String("oauth-base-url", "", "authorization server base URL (defaults to --base-url)")
	flags.String("client-id", "", "OAuth client id of the admin console")
	flags.String(KeyScope, "", "space separated OAuth scopes to request")
	flags.Int("callback-port", DefaultCallbackPort,
		"loopback port of the OAuth callback page; http://127.0.0.1:<port>/oauth-callback must be a registered redirect uri (0 picks a free port)")
	flags.Bool("silent-refresh", false, "refresh the token in the background before it expires")
	flags.String("storage", "", "session storage file")
	flags.String("log-file", "", "log file")
	flags.String("log-level", "", "log level: debug, info, warn, error")
}

var flagKeys = map[string]string{
	KeyConfigFile:    KeyConfigFile,
	"base-url":       KeyBaseURL,
	"oauth-base-url": KeyOAuthBaseURL,
	"client-id":      KeyClientID,
	KeyScope:         KeyScope,
	"callback-port":  KeyCallbackPort,
	"silent-refresh": KeySilentRefresh,
	"storage":        KeyStoragePath,
	"log-file":       KeyLogFile,
	"log-level":      KeyLogLevel,
}

// Load resolves the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: read .env: %w", err)
	}

	v, err := newViper(flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	v.SetDefault(KeyBaseURL, "http://localhost:4000")
	v.SetDefault(KeyScope, "scopes:manage:all clients:manage:all")
	v.SetDefault(KeyCallbackPort, DefaultCallbackPort)
	v.SetDefault(KeySilentRefresh, false)
	v.SetDefault(KeyStoragePath, filepath.Join(dir, "storage.json"))
	v.SetDefault(KeyLogFile, filepath.Join(dir, "boruta-admin.log"))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyScopesPath, "/api/scopes")
	v.SetDefault(KeyClientsPath, "/oauth/api/clients")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config.Load: bind --%s: %w", name, err)
			}
		}
	}

	v.SetConfigType("yaml")
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load: read %s: %w", file, err)
		}
		return v, nil
	}
	v.SetConfigName("config")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		OAuthBaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString(KeyOAuthBaseURL)), "/"),
		ClientID:      strings.TrimSpace(v.GetString(KeyClientID)),
		Scopes:        strings.Fields(v.GetString(KeyScope)),
		CallbackPort:  v.GetInt(KeyCallbackPort),
		SilentRefresh: v.GetBool(KeySilentRefresh),
		StoragePath:   strings.TrimSpace(v.GetString(KeyStoragePath)),
		LogFile:       strings.TrimSpace(v.GetString(KeyLogFile)),
		LogLevel:      strings.TrimSpace(v.GetString(KeyLogLevel)),
		ScopesPath:    strings.TrimSpace(v.GetString(KeyScopesPath)),
		ClientsPath:   strings.TrimSpace(v.GetString(KeyClientsPath)),
	}
	if cfg.OAuthBaseURL == "" {
		cfg.OAuthBaseURL = cfg.BaseURL
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("config: %s must not be empty", KeyBaseURL)
	}
	if cfg.CallbackPort < 0 || cfg.CallbackPort > 65535 {
		return Config{}, fmt.Errorf("config: %s %d out of range", KeyCallbackPort, cfg.CallbackPort)
	}
	return cfg, nil
}

// ValidateLogin reports settings an interactive login cannot do without.
func (c Config) ValidateLogin() error {
	if c.ClientID == "" {
		return fmt.Errorf("config: %s is required to log in (flag --client-id or %s_CLIENT_ID)", KeyClientID, EnvPrefix)
	}
	return nil
}
