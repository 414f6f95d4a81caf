package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the signing secret used when none is configured.
// It is only accepted outside production.
const DefaultJWTSecret = "insecure-dev-secret"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	App struct {
		Env string
	}
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}
	Validation Validation
	Log        struct {
		Level string
	}
}

// Validation tunes the login and registration rule sets.
type Validation struct {
	Login struct {
		RequireName       bool
		StrongPassword    bool
		PasswordMinLength int
		RequireLower      bool
		RequireUpper      bool
		RequireDigit      bool
		RequireSymbol     bool
	}
	Register struct {
		UsernameMinLength int
		PasswordMinLength int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file; never overrides the environment

	v := viper.New()
	v.SetEnvPrefix("USERAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.addr", "0.0.0.0:4000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/users.db")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwtsecret", DefaultJWTSecret)
	v.SetDefault("auth.tokenttl", "168h")
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("validation.login.requirename", true)
	v.SetDefault("validation.login.strongpassword", true)
	v.SetDefault("validation.login.passwordminlength", 8)
	v.SetDefault("validation.login.requirelower", true)
	v.SetDefault("validation.login.requireupper", true)
	v.SetDefault("validation.login.requiredigit", true)
	v.SetDefault("validation.login.requiresymbol", true)
	v.SetDefault("validation.register.usernameminlength", 3)
	v.SetDefault("validation.register.passwordminlength", 4)
	v.SetDefault("log.level", "info")
}

// IsProduction reports whether the process runs with app.env=production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Env), "production")
}

// UsesDefaultSecret reports whether the signing secret is the insecure fallback.
func (c Config) UsesDefaultSecret() bool {
	return strings.TrimSpace(c.Auth.JWTSecret) == DefaultJWTSecret
}

// Validate checks the loaded configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.Auth.JWTSecret)
	if secret == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	} else if c.IsProduction() && c.UsesDefaultSecret() {
		errs = append(errs, errors.New("auth jwt secret must be set explicitly in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth token ttl must be positive, got %s", c.Auth.TokenTTL))
	}
	// bcrypt.MinCost..bcrypt.MaxCost
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth bcrypt cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}

	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database path is required for sqlite"))
		}
	case "postgres":
		if strings.TrimSpace(c.Database.URL) == "" {
			errs = append(errs, errors.New("database url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}

	if c.Validation.Login.StrongPassword && c.Validation.Login.PasswordMinLength < 1 {
		errs = append(errs, errors.New("login password min length must be positive"))
	}
	if c.Validation.Register.UsernameMinLength < 1 || c.Validation.Register.PasswordMinLength < 1 {
		errs = append(errs, errors.New("register min lengths must be positive"))
	}

	return errors.Join(errs...)
}
