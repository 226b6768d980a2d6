// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"bitbnb/hosting-api/model"

	"github.com/joho/godotenv"
	v "github.com/spf13/viper"
)

var (
	validLogLevels      = []string{"debug", "info", "warn", "error", "fatal"}
	validDatabaseTypes  = []string{"mongo", "sqlite", "postgres"}
	validPinningTargets = []string{"pinata", "filebase"}
)

// load reads .env and the optional config.toml. Environment variables take
// precedence over both.
func load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env file, %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return nil
}

// Setup prepares everything config-related so that the server can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	//
	// ENVS
	//
	v.BindEnv("host.port", "HOST_PORT", "PORT")
	v.BindEnv("host.domain", "HOST_DOMAIN")
	v.BindEnv("host.cors", "HOST_CORS")

	v.BindEnv("host.ssl.enabled", "HOST_SSL_ENABLED")
	v.BindEnv("host.ssl.certificate_path", "HOST_SSL_CERTIFICATE_PATH")
	v.BindEnv("host.ssl.certificate_key_path", "HOST_SSL_CERTIFICATE_KEY_PATH")

	v.BindEnv("short_link.base_url", "SHORT_LINK_BASE_URL")

	v.BindEnv("ipfs.api_url", "IPFS_API_URL")
	v.BindEnv("ipfs.gateway_url", "IPFS_GATEWAY_URL")
	v.BindEnv("ipfs.init_attempts", "IPFS_INIT_ATTEMPTS")
	v.BindEnv("ipfs.init_delay", "IPFS_INIT_DELAY")
	v.BindEnv("ipfs.timeout", "IPFS_TIMEOUT")

	v.BindEnv("database.type", "DATABASE_TYPE")
	v.BindEnv("database.uri", "DATABASE_URI", "MONGODB_URI")
	v.BindEnv("database.name", "DATABASE_NAME")
	v.BindEnv("database.collection", "DATABASE_COLLECTION")
	v.BindEnv("database.dsn", "DATABASE_DSN")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")

	v.BindEnv("cloudflare.turnstile.enabled", "CLOUDFLARE_TURNSTILE_ENABLED")
	v.BindEnv("cloudflare.turnstile.secret_token", "CLOUDFLARE_TURNSTILE_SECRET_TOKEN")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 3000)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:5173", "https://bit-bn-b-hive.vercel.app"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("short_link.base_url", "https://bitbnb.io")

	v.SetDefault("ipfs.api_url", "http://127.0.0.1:5001")
	v.SetDefault("ipfs.gateway_url", model.DefaultContentGateway)
	v.SetDefault("ipfs.init_attempts", 3)
	v.SetDefault("ipfs.init_delay", 2*time.Second)
	v.SetDefault("ipfs.timeout", 5*time.Minute)

	v.SetDefault("database.type", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "bitbnb")
	v.SetDefault("database.collection", "urls")
	v.SetDefault("database.dsn", "bitbnb.db")

	v.SetDefault("upload.max_size", 50)

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	if err := load(); err != nil {
		return err
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("ipfs.api_url") == "" {
		return errors.New("ipfs.api_url can't be empty")
	}

	if v.GetInt("ipfs.init_attempts") <= 0 {
		return errors.New("ipfs.init_attempts must be bigger than 0")
	}

	if v.GetDuration("ipfs.init_delay") < 0 {
		return errors.New("ipfs.init_delay can't be negative")
	}

	switch t := v.GetString("database.type"); t {
	case "mongo":
		if v.GetString("database.uri") == "" {
			return errors.New("database uri can't be empty")
		}
		if v.GetString("database.name") == "" || v.GetString("database.collection") == "" {
			return errors.New("database name and collection can't be empty")
		}
	case "sqlite", "postgres":
		if v.GetString("database.dsn") == "" {
			return errors.New("database dsn can't be empty")
		}
	default:
		return fmt.Errorf("invalid database type provided, expected one of %v", validDatabaseTypes)
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. The upload endpoint won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

// SetupClient prepares the configuration of the command line client
func SetupClient() error {
	v.BindEnv("backend.url", "BACKEND_URL", "VITE_BACKEND_URL")

	v.BindEnv("ledger.rpc_url", "LEDGER_RPC_URL")
	v.BindEnv("ledger.history_limit", "LEDGER_HISTORY_LIMIT")
	v.BindEnv("ledger.record_kind", "LEDGER_RECORD_KIND")

	v.BindEnv("keychain.url", "KEYCHAIN_URL")

	v.BindEnv("pinning.provider", "PINNING_PROVIDER")
	v.BindEnv("pinning.gateway_url", "PINNING_GATEWAY_URL")

	v.BindEnv("pinata.api_key", "PINATA_API_KEY", "VITE_PINATA_API_KEY")
	v.BindEnv("pinata.secret_key", "PINATA_SECRET_KEY", "VITE_PINATA_SECRET_KEY")
	v.BindEnv("pinata.url", "PINATA_URL")

	v.BindEnv("filebase.access_key", "FILEBASE_ACCESS_KEY")
	v.BindEnv("filebase.secret_key", "FILEBASE_SECRET_KEY")
	v.BindEnv("filebase.bucket", "FILEBASE_BUCKET")
	v.BindEnv("filebase.endpoint", "FILEBASE_ENDPOINT")

	v.BindEnv("session.path", "SESSION_PATH")

	v.SetDefault("app.log_level", "warn")

	v.SetDefault("backend.url", "http://localhost:3000")

	v.SetDefault("ledger.rpc_url", "https://api.hive.blog")
	v.SetDefault("ledger.history_limit", 100)
	v.SetDefault("ledger.record_kind", "ipfs_upload")

	v.SetDefault("keychain.url", "http://127.0.0.1:1337")

	v.SetDefault("pinning.provider", "pinata")
	v.SetDefault("pinning.gateway_url", model.DefaultContentGateway)

	v.SetDefault("pinata.url", "https://api.pinata.cloud")
	v.SetDefault("filebase.endpoint", "https://s3.filebase.com")

	if err := load(); err != nil {
		return err
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetString("backend.url") == "" {
		return errors.New("backend.url can't be empty")
	}

	if n := v.GetInt("ledger.history_limit"); n <= 0 || n > 1000 {
		return errors.New("ledger.history_limit must be between 1 and 1000")
	}

	switch p := v.GetString("pinning.provider"); p {
	case "pinata":
		if v.GetString("pinata.api_key") == "" || v.GetString("pinata.secret_key") == "" {
			return errors.New("pinata api key and secret key can't be empty")
		}
	case "filebase":
		if v.GetString("filebase.access_key") == "" || v.GetString("filebase.secret_key") == "" {
			return errors.New("filebase access key and secret key can't be empty")
		}
		if v.GetString("filebase.bucket") == "" {
			return errors.New("filebase bucket can't be empty")
		}
	default:
		return fmt.Errorf("invalid pinning provider provided, expected one of %v", validPinningTargets)
	}

	return nil
}
