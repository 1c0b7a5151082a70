package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// UIFeatures toggles optional controls of the canvas client. It is served
// read-only; the backend does not act on it.
type UIFeatures struct {
	ShowErase   bool `json:"showErase" mapstructure:"show_erase"`
	ShowRestore bool `json:"showRestore" mapstructure:"show_restore"`
	ShowAddText bool `json:"showAddText" mapstructure:"show_add_text"`
	ShowUndo    bool `json:"showUndo" mapstructure:"show_undo"`
	ShowReset   bool `json:"showReset" mapstructure:"show_reset"`
	ShowExport  bool `json:"showExport" mapstructure:"show_export"`
	ShowCrop    bool `json:"showCrop" mapstructure:"show_crop"`
}

type Config struct {
	// PicTech API
	PicTechBaseURL string
	PicTechAPIKey  string
	PicTechSecret  string
	InpaintMode    string

	// Polling
	PollMaxAttempts int
	PollBaseDelay   time.Duration

	// File storage
	StorageBackend        string
	UploadDir             string
	SupabaseURL           string
	SupabaseKey           string
	SupabaseStorageBucket string
	FileRetention         time.Duration
	JanitorInterval       time.Duration

	// State
	DatabaseURL string
	RedisURL    string
	SessionTTL  time.Duration

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Credits
	InitialCredits int64

	// Auth
	JWTSecret string

	// Server
	Port        string
	Environment string

	UI UIFeatures
}

const (
	InpaintSync  = "sync"
	InpaintAsync = "async"

	StorageLocal    = "local"
	StorageSupabase = "supabase"
)

func defaults(v *viper.Viper) {
	v.SetDefault("picotech_base_url", "http://example.com")
	v.SetDefault("inpaint_mode", InpaintSync)
	v.SetDefault("poll_max_attempts", 3)
	v.SetDefault("poll_base_delay", 500*time.Millisecond)
	v.SetDefault("storage_backend", StorageLocal)
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("supabase_storage_bucket", "translated-images")
	v.SetDefault("file_retention", time.Duration(0))
	v.SetDefault("janitor_interval", time.Hour)
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("kafka_topic", "image-translation-events")
	v.SetDefault("credits_initial_balance", 10)
	v.SetDefault("port", "8000")
	v.SetDefault("environment", "development")

	v.SetDefault("ui.show_erase", true)
	v.SetDefault("ui.show_restore", true)
	v.SetDefault("ui.show_add_text", true)
	v.SetDefault("ui.show_undo", true)
	v.SetDefault("ui.show_reset", true)
	v.SetDefault("ui.show_export", true)
	v.SetDefault("ui.show_crop", false)
}

// Load reads configuration once at process start: a .env file if present,
// an optional YAML file named by --config, then environment variables.
func Load(args []string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	flags.String("port", "", "HTTP listen port")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlag("port", flags.Lookup("port")); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromViper maps a populated viper instance onto Config.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		PicTechBaseURL: strings.TrimSuffix(v.GetString("picotech_base_url"), "/"),
		PicTechAPIKey:  v.GetString("picotech_api_key"),
		PicTechSecret:  v.GetString("picotech_secret"),
		InpaintMode:    strings.ToLower(v.GetString("inpaint_mode")),

		PollMaxAttempts: v.GetInt("poll_max_attempts"),
		PollBaseDelay:   v.GetDuration("poll_base_delay"),

		StorageBackend:        strings.ToLower(v.GetString("storage_backend")),
		UploadDir:             v.GetString("upload_dir"),
		SupabaseURL:           v.GetString("supabase_url"),
		SupabaseKey:           v.GetString("supabase_key"),
		SupabaseStorageBucket: v.GetString("supabase_storage_bucket"),
		FileRetention:         v.GetDuration("file_retention"),
		JanitorInterval:       v.GetDuration("janitor_interval"),

		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),
		SessionTTL:  v.GetDuration("session_ttl"),

		KafkaTopic: v.GetString("kafka_topic"),

		InitialCredits: v.GetInt64("credits_initial_balance"),
		JWTSecret:      v.GetString("jwt_secret"),

		Port:        v.GetString("port"),
		Environment: v.GetString("environment"),

		UI: UIFeatures{
			ShowErase:   v.GetBool("ui.show_erase"),
			ShowRestore: v.GetBool("ui.show_restore"),
			ShowAddText: v.GetBool("ui.show_add_text"),
			ShowUndo:    v.GetBool("ui.show_undo"),
			ShowReset:   v.GetBool("ui.show_reset"),
			ShowExport:  v.GetBool("ui.show_export"),
			ShowCrop:    v.GetBool("ui.show_crop"),
		},
	}
	for _, b := range strings.Split(v.GetString("kafka_brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.PicTechBaseURL == "" {
		return errors.New("PICOTECH_BASE_URL is required")
	}
	if c.PicTechAPIKey == "" {
		return errors.New("PICOTECH_API_KEY is required")
	}
	if c.PicTechSecret == "" {
		return errors.New("PICOTECH_SECRET is required")
	}
	if c.InpaintMode != InpaintSync && c.InpaintMode != InpaintAsync {
		return fmt.Errorf("INPAINT_MODE must be %q or %q", InpaintSync, InpaintAsync)
	}
	if c.PollMaxAttempts < 1 {
		return errors.New("POLL_MAX_ATTEMPTS must be at least 1")
	}
	if c.InitialCredits < 0 {
		return errors.New("CREDITS_INITIAL_BALANCE must not be negative")
	}
	switch c.StorageBackend {
	case StorageLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required")
		}
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
