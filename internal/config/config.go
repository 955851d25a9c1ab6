package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	ArchiveRoot           string        `mapstructure:"ARCHIVE_ROOT"`
	ViewerRoot            string        `mapstructure:"VIEWER_ROOT"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SessionSecret         string        `mapstructure:"SESSION_SECRET"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL"`
	Accounts              string        `mapstructure:"ACCOUNTS"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	DraftTTL              time.Duration `mapstructure:"DRAFT_TTL"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	LogFormat             string        `mapstructure:"LOG_FORMAT"`
	Timezone              string        `mapstructure:"TIMEZONE"`
	ModalityList          string        `mapstructure:"MODALITIES"`
	AbsentFieldPolicy     string        `mapstructure:"ABSENT_FIELD_POLICY"`
	VerifyingOrganization string        `mapstructure:"VERIFYING_ORGANIZATION"`
	VerifyingObserverName string        `mapstructure:"VERIFYING_OBSERVER_NAME"`
	TemplateDir           string        `mapstructure:"TEMPLATE_DIR"`
	ViewIdleTimeout       time.Duration `mapstructure:"VIEW_IDLE_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "ARCHIVE_ROOT", "VIEWER_ROOT", "REQUEST_TIMEOUT",
	"SESSION_SECRET", "SESSION_TTL", "ACCOUNTS", "DATABASE_URL", "REDIS_URL",
	"DRAFT_TTL", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "MODALITIES",
	"ABSENT_FIELD_POLICY", "VERIFYING_ORGANIZATION", "VERIFYING_OBSERVER_NAME",
	"TEMPLATE_DIR", "VIEW_IDLE_TIMEOUT",
}

// Load reads the environment and an optional .env file in the working
// directory. Environment variables win over the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("DRAFT_TTL", "168h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("MODALITIES", "CR,DR,CT,PT,MR,US,XA,NM,OT")
	v.SetDefault("ABSENT_FIELD_POLICY", "empty")
	v.SetDefault("VERIFYING_ORGANIZATION", "Radiology Department")
	v.SetDefault("VERIFYING_OBSERVER_NAME", "REPORTING^RADIOLOGIST")
	v.SetDefault("TEMPLATE_DIR", "ui/templates")
	v.SetDefault("VIEW_IDLE_TIMEOUT", "30m")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ArchiveRoot == "" {
		return nil, fmt.Errorf("ARCHIVE_ROOT is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Modalities returns the query bar's modality buttons in order.
func (c *Config) Modalities() []string {
	var out []string
	for _, m := range strings.Split(c.ModalityList, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Location resolves TIMEZONE; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks that the configuration is safe to run. Outside development
// a session secret of at least 32 bytes and at least one account are
// required.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"ARCHIVE_ROOT": c.ArchiveRoot, "VIEWER_ROOT": c.ViewerRoot} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if len(c.Modalities()) == 0 {
		return fmt.Errorf("MODALITIES must list at least one code")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	switch strings.ToLower(c.AbsentFieldPolicy) {
	case "", "empty", "exclude":
	default:
		return fmt.Errorf("ABSENT_FIELD_POLICY must be \"empty\" or \"exclude\", got %q", c.AbsentFieldPolicy)
	}
	if !c.IsDev() {
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes when ENV=%q", c.Env)
		}
		if strings.TrimSpace(c.Accounts) == "" {
			return fmt.Errorf("ACCOUNTS is required when ENV=%q", c.Env)
		}
	}
	return nil
}
