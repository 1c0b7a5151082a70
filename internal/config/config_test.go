package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-translator-backend/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		PicTechBaseURL:  "https://api.pictech.test",
		PicTechAPIKey:   "key",
		PicTechSecret:   "secret",
		InpaintMode:     config.InpaintSync,
		PollMaxAttempts: 3,
		StorageBackend:  config.StorageLocal,
		UploadDir:       "uploads",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "missing key", mutate: func(c *config.Config) { c.PicTechAPIKey = "" }, wantErr: "PICOTECH_API_KEY"},
		{name: "missing secret", mutate: func(c *config.Config) { c.PicTechSecret = "" }, wantErr: "PICOTECH_SECRET"},
		{name: "bad inpaint mode", mutate: func(c *config.Config) { c.InpaintMode = "batch" }, wantErr: "INPAINT_MODE"},
		{name: "zero attempts", mutate: func(c *config.Config) { c.PollMaxAttempts = 0 }, wantErr: "POLL_MAX_ATTEMPTS"},
		{name: "negative credits", mutate: func(c *config.Config) { c.InitialCredits = -1 }, wantErr: "CREDITS_INITIAL_BALANCE"},
		{name: "supabase without url", mutate: func(c *config.Config) { c.StorageBackend = config.StorageSupabase }, wantErr: "SUPABASE_URL"},
		{name: "unknown backend", mutate: func(c *config.Config) { c.StorageBackend = "s3" }, wantErr: "STORAGE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("picotech_base_url", "https://api.pictech.test/")
	v.Set("picotech_api_key", "key")
	v.Set("picotech_secret", "secret")
	v.Set("inpaint_mode", "ASYNC")
	v.Set("poll_base_delay", "250ms")
	v.Set("kafka_brokers", "kafka-1:9092, kafka-2:9092,")
	v.Set("ui.show_crop", true)

	cfg := config.FromViper(v)

	assert.Equal(t, "https://api.pictech.test", cfg.PicTechBaseURL)
	assert.Equal(t, config.InpaintAsync, cfg.InpaintMode)
	assert.Equal(t, 250*time.Millisecond, cfg.PollBaseDelay)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UI.ShowCrop)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PICOTECH_API_KEY", "env-key")
	t.Setenv("PICOTECH_SECRET", "env-secret")
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("CREDITS_INITIAL_BALANCE", "5")

	cfg, err := config.Load([]string{"--port", "9090"})
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.PicTechAPIKey)
	assert.Equal(t, int64(5), cfg.InitialCredits)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.PollMaxAttempts)
	assert.True(t, cfg.UI.ShowErase)
}
