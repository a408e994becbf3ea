package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"lookupdesk/logger"

	"github.com/spf13/viper"
)

type DefaultPaths struct {
	ConfigDir     string
	StateFilePath string
	LogPathApp    string
	DBPath        string
	LogLevel      string
	APIURL        string
}

type Configuration struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Server struct {
		Port    string `mapstructure:"port"`
		LogPath string `mapstructure:"log_path"`
	} `mapstructure:"server"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Auth struct {
		JWTSecret         string `mapstructure:"jwt_secret"`
		TokenTTLMinutes   int    `mapstructure:"token_ttl_minutes"`
		BootstrapAdmin    string `mapstructure:"bootstrap_admin"`
		BootstrapPassword string `mapstructure:"bootstrap_password"`
	} `mapstructure:"auth"`
	Query struct {
		RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
		SuggestionLimit    int `mapstructure:"suggestion_limit"`
	} `mapstructure:"query"`
	Client struct {
		APIURL              string `mapstructure:"api_url"`
		TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
		MinSuggestionLength int    `mapstructure:"min_suggestion_length"`
	} `mapstructure:"client"`
}

// insecureDefaultSecret is only used when no secret is configured; Init warns about it.
const insecureDefaultSecret = "lookupdesk-insecure-development-secret"

var AppConfig Configuration

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(path string) (string, error) {
	return expandTilde(path)
}

func GetDefaultConfigPaths() DefaultPaths {
	var paths DefaultPaths
	userConfigDirBase, err := os.UserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not get user config dir: %v. Using current directory.\n", err)
		userConfigDirBase = "."
	}

	paths.ConfigDir = filepath.Join(userConfigDirBase, "lookupdesk")
	logDir := filepath.Join(paths.ConfigDir, "logs")

	paths.StateFilePath = filepath.Join(paths.ConfigDir, "session.json")
	paths.LogPathApp = filepath.Join(logDir, "app.log")
	paths.DBPath = filepath.Join(paths.ConfigDir, "lookupdesk.db")
	paths.LogLevel = "INFO"
	paths.APIURL = "http://127.0.0.1:8000"
	return paths
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	defaults := GetDefaultConfigPaths()
	v.SetDefault("database.path", defaults.DBPath)
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.log_path", defaults.LogPathApp)
	v.SetDefault("logging.level", defaults.LogLevel)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 60)
	v.SetDefault("auth.bootstrap_admin", "admin")
	v.SetDefault("auth.bootstrap_password", "")
	v.SetDefault("query.rate_limit_per_minute", 5)
	v.SetDefault("query.suggestion_limit", 5)
	v.SetDefault("client.api_url", defaults.APIURL)
	v.SetDefault("client.timeout_seconds", 30)
	v.SetDefault("client.min_suggestion_length", 3)
}

// Load reads the configuration without touching loggers or directories.
func Load(cfgFile string) (Configuration, string, error) {
	v := viper.New()
	SetDefaults(v)

	defaults := GetDefaultConfigPaths()
	if cfgFile != "" {
		expandedCfgFile, err := expandTilde(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in config file path '%s': %v. Trying original path.\n", cfgFile, err)
			expandedCfgFile = cfgFile
		}
		v.SetConfigFile(expandedCfgFile)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(defaults.ConfigDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("LOOKUPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	configUsedMsg := "Using default/environment configuration."
	readErr := v.ReadInConfig()
	if readErr == nil {
		configUsedMsg = fmt.Sprintf("Using config file: %s", v.ConfigFileUsed())
	} else if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
		return Configuration{}, "", fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), readErr)
	}

	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return Configuration{}, "", fmt.Errorf("unable to decode config into struct: %w", err)
	}

	var err error
	c.Database.Path, err = expandTilde(c.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in database.path '%s': %v.\n", c.Database.Path, err)
	}
	c.Server.LogPath, err = expandTilde(c.Server.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in server.log_path '%s': %v.\n", c.Server.LogPath, err)
	}
	return c, configUsedMsg, nil
}

func Init(cfgFile string, flagAppLogPath, flagLogLevel string) error {
	c, configUsedMsg, err := Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		return err
	}
	AppConfig = c

	if flagAppLogPath != "" {
		expandedPath, err := expandTilde(flagAppLogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in --app-log path '%s': %v. Using original path.\n", flagAppLogPath, err)
			AppConfig.Server.LogPath = flagAppLogPath
		} else {
			AppConfig.Server.LogPath = expandedPath
		}
	}
	if flagLogLevel != "" {
		AppConfig.Logging.Level = strings.ToUpper(flagLogLevel)
	}

	if err := os.MkdirAll(GetDefaultConfigPaths().ConfigDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create main config directory: %v\n", err)
	}

	if err := logger.InitGlobalLoggers(AppConfig.Server.LogPath, AppConfig.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize global loggers with final config: %v\n", err)
		return fmt.Errorf("failed to initialize global loggers with final config: %w", err)
	}

	logger.Info(configUsedMsg)
	if flagAppLogPath != "" || flagLogLevel != "" {
		logger.Info("Log path/level flags may have overridden config file/defaults.")
	}

	if AppConfig.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not configured. Falling back to an insecure development secret.")
		AppConfig.Auth.JWTSecret = insecureDefaultSecret
	}
	if AppConfig.Auth.TokenTTLMinutes <= 0 {
		AppConfig.Auth.TokenTTLMinutes = 60
	}
	if AppConfig.Query.RateLimitPerMinute <= 0 {
		logger.Warn("query.rate_limit_per_minute is %d; public query rate limiting is DISABLED.", AppConfig.Query.RateLimitPerMinute)
	}

	logger.Debug("Final AppConfig Initialized: database=%s port=%s api_url=%s", AppConfig.Database.Path, AppConfig.Server.Port, AppConfig.Client.APIURL)
	return nil
}
