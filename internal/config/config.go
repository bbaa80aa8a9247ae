package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	// DevFacilityID is the facility assumed for unauthenticated requests in
	// development mode.
	DevFacilityID string `mapstructure:"DEV_FACILITY_ID"`

	SMSProvider           string `mapstructure:"SMS_PROVIDER"`
	Fast2SMSAPIKey        string `mapstructure:"FAST2SMS_API_KEY"`
	Fast2SMSMessageID     string `mapstructure:"FAST2SMS_MESSAGE_ID"`
	Fast2SMSPhoneNumberID string `mapstructure:"FAST2SMS_PHONE_NUMBER_ID"`

	ReminderEnabled        bool   `mapstructure:"REMINDER_ENABLED"`
	ReminderHour           int    `mapstructure:"REMINDER_HOUR"`
	ReminderMinute         int    `mapstructure:"REMINDER_MINUTE"`
	ReminderTimezone       string `mapstructure:"REMINDER_TIMEZONE"`
	ReminderLookaheadDays  int    `mapstructure:"REMINDER_LOOKAHEAD_DAYS"`
	ReminderRequireConsent bool   `mapstructure:"REMINDER_REQUIRE_CONSENT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SMS_PROVIDER", "mock")
	v.SetDefault("DEV_FACILITY_ID", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("REMINDER_ENABLED", true)
	v.SetDefault("REMINDER_HOUR", 8)
	v.SetDefault("REMINDER_MINUTE", 0)
	v.SetDefault("REMINDER_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("REMINDER_LOOKAHEAD_DAYS", 0)
	v.SetDefault("REMINDER_REQUIRE_CONSENT", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("DEV_FACILITY_ID")
	v.BindEnv("SMS_PROVIDER")
	v.BindEnv("FAST2SMS_API_KEY")
	v.BindEnv("FAST2SMS_MESSAGE_ID")
	v.BindEnv("FAST2SMS_PHONE_NUMBER_ID")
	v.BindEnv("REMINDER_ENABLED")
	v.BindEnv("REMINDER_HOUR")
	v.BindEnv("REMINDER_MINUTE")
	v.BindEnv("REMINDER_TIMEZONE")
	v.BindEnv("REMINDER_LOOKAHEAD_DAYS")
	v.BindEnv("REMINDER_REQUIRE_CONSENT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory, and when the Fast2SMS provider is selected its
// credentials must be present.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}

	switch c.SMSProvider {
	case "mock":
	case "fast2sms":
		if c.Fast2SMSAPIKey == "" {
			return fmt.Errorf("FAST2SMS_API_KEY is required when SMS_PROVIDER is \"fast2sms\"")
		}
		if c.Fast2SMSMessageID == "" {
			return fmt.Errorf("FAST2SMS_MESSAGE_ID is required when SMS_PROVIDER is \"fast2sms\"")
		}
		if c.Fast2SMSPhoneNumberID == "" {
			return fmt.Errorf("FAST2SMS_PHONE_NUMBER_ID is required when SMS_PROVIDER is \"fast2sms\"")
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be \"mock\" or \"fast2sms\", got %q", c.SMSProvider)
	}

	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23, got %d", c.ReminderHour)
	}
	if c.ReminderMinute < 0 || c.ReminderMinute > 59 {
		return fmt.Errorf("REMINDER_MINUTE must be between 0 and 59, got %d", c.ReminderMinute)
	}
	if c.ReminderLookaheadDays < 0 {
		return fmt.Errorf("REMINDER_LOOKAHEAD_DAYS must not be negative, got %d", c.ReminderLookaheadDays)
	}
	if _, err := time.LoadLocation(c.ReminderTimezone); err != nil {
		return fmt.Errorf("REMINDER_TIMEZONE %q is not a valid IANA zone: %w", c.ReminderTimezone, err)
	}

	return nil
}
