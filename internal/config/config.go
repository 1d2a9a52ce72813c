package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendDiscord  = "discord"
	BackendTelegram = "telegram"
)

type Config struct {
	TargetURL        string        `yaml:"check_url" validate:"required,url"`
	CheckInterval    time.Duration `yaml:"-" validate:"gte=1s"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=1"`
	ProbeTimeout     time.Duration `yaml:"-" validate:"gt=0"`
	DisplayName      string        `yaml:"website_name" validate:"required"`
	HomeURL          string        `yaml:"website_home_url" validate:"omitempty,url"`
	ChannelID        string        `yaml:"status_channel_id" validate:"required,numeric"`
	UserID           string        `yaml:"user_id" validate:"required,numeric"`
	Backend          string        `yaml:"chat_backend" validate:"oneof=discord telegram"`
	Token            string        `yaml:"-" validate:"required"`
	Debug            bool          `yaml:"debug"`

	LogDir        string   `yaml:"log_dir"`     // rotating log file dir; empty = stderr only
	StatusAddr    string   `yaml:"status_addr"` // status API bind address; empty = disabled
	StatusAPIKeys []string `yaml:"status_api_keys"`
	StatusOrigins []string `yaml:"status_allowed_origins"` // empty = any origin
	StatusRPM     int      `yaml:"status_rpm" validate:"gte=0"`
	StatusBurst   int      `yaml:"status_burst" validate:"gte=0"`

	NotifyRatePerSec float64 `yaml:"notify_rate_per_sec" validate:"gt=0"`

	SlackWebhook string `yaml:"slack_webhook_url" validate:"omitempty,url"`
	SMTP         SMTP   `yaml:"smtp"`
}

// SMTP configures the optional email mirror. Host empty = disabled.
type SMTP struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" validate:"omitempty,gt=0,lte=65535"`
	Username string   `yaml:"username"`
	Password string   `yaml:"-"`
	From     string   `yaml:"from" validate:"omitempty,email"`
	To       []string `yaml:"to" validate:"omitempty,dive,email"`
	TLS      bool     `yaml:"tls"`
}

func (s SMTP) Enabled() bool { return s.Host != "" }

// Defaults mirror the values the bot has always shipped with.
func Defaults() Config {
	return Config{
		TargetURL:        "https://resilientinterface.com/resources/images/info-hub.png",
		CheckInterval:    3600 * time.Second,
		FailureThreshold: 3,
		ProbeTimeout:     10 * time.Second,
		DisplayName:      "ResilientInterface",
		HomeURL:          "https://resilientinterface.com",
		Backend:          BackendDiscord,
		Debug:            true,
		StatusAddr:       "127.0.0.1:8080",
		StatusRPM:        120,
		StatusBurst:      60,
		NotifyRatePerSec: 1,
		SMTP:             SMTP{Port: 587},
	}
}

// FromEnv overlays the process environment on the defaults. Values that
// fail to parse keep their default.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// Load reads the optional YAML file named by CONFIG_FILE, the .env file
// named by ENV_FILE (default ".env"), then the environment, and validates
// the result.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.ProbeTimeout >= c.CheckInterval {
		return fmt.Errorf("invalid config: PROBE_TIMEOUT_MS (%s) must be shorter than CHECK_INTERVAL_SECONDS (%s)", c.ProbeTimeout, c.CheckInterval)
	}
	if c.SMTP.Enabled() && (c.SMTP.From == "" || len(c.SMTP.To) == 0) {
		return errors.New("invalid config: SMTP_HOST needs SMTP_FROM and SMTP_TO")
	}
	return nil
}

// Redacted is safe to log.
func (c Config) Redacted() Config {
	if c.Token != "" {
		c.Token = "***"
	}
	if c.SMTP.Password != "" {
		c.SMTP.Password = "***"
	}
	if len(c.StatusAPIKeys) > 0 {
		c.StatusAPIKeys = []string{"***"}
	}
	return c
}

func applyEnv(cfg *Config) {
	setString(&cfg.TargetURL, "CHECK_URL")
	setString(&cfg.DisplayName, "WEBSITE_NAME")
	setString(&cfg.HomeURL, "WEBSITE_HOME_URL")
	setString(&cfg.ChannelID, "STATUS_CHANNEL_ID")
	setString(&cfg.UserID, "USER_ID")
	if v := os.Getenv("CHAT_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	// Each backend has its own credential variable.
	switch cfg.Backend {
	case BackendTelegram:
		setString(&cfg.Token, "TELEGRAM_BOT_TOKEN")
	default:
		setString(&cfg.Token, "DISCORD_BOT_TOKEN")
	}

	if v := os.Getenv("CHECK_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CheckInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PROBE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.ProbeTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	setPositiveInt(&cfg.FailureThreshold, "FAILURE_THRESHOLD")
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	setString(&cfg.LogDir, "LOG_DIR")
	// STATUS_ADDR set to "" disables the status API.
	if v, ok := os.LookupEnv("STATUS_ADDR"); ok {
		cfg.StatusAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("STATUS_API_KEYS"); v != "" {
		cfg.StatusAPIKeys = splitList(v)
	}
	if v := os.Getenv("STATUS_ALLOWED_ORIGINS"); v != "" {
		cfg.StatusOrigins = splitList(v)
	}
	setNonNegativeInt(&cfg.StatusRPM, "STATUS_RPM")
	setNonNegativeInt(&cfg.StatusBurst, "STATUS_BURST")
	if v := os.Getenv("NOTIFY_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.NotifyRatePerSec = f
		}
	}

	setString(&cfg.SlackWebhook, "SLACK_WEBHOOK_URL")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setPositiveInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	if v := os.Getenv("SMTP_TO"); v != "" {
		cfg.SMTP.To = splitList(v)
	}
	if v := os.Getenv("SMTP_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SMTP.TLS = b
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setNonNegativeInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
