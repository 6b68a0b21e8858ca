// Package config loads the MAA core configuration from the environment.
//
// Everything the sessions need (credentials, model IDs, intervals) is carried
// in an explicit Config value injected into the constructors; nothing reads
// the environment at call time.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// APIKey authenticates every Gemini collaborator call (text, video,
	// live audio). GEMINI_API_KEY wins over GOOGLE_API_KEY.
	APIKey string

	// Model IDs per collaborator surface.
	ChatModel  string
	VoiceModel string
	VideoModel string

	// VoiceName selects the prebuilt voice for live audio sessions.
	VoiceName string

	// Tracking simulation.
	TickInterval time.Duration

	// Promo video generation.
	PromoPollInterval time.Duration

	// Live audio session.
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// MetricsAddr, when set, serves a Prometheus /metrics endpoint.
	MetricsAddr string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:            envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		ChatModel:         envOr("MAA_CHAT_MODEL", "gemini-2.5-flash"),
		VoiceModel:        envOr("MAA_VOICE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		VideoModel:        envOr("MAA_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		VoiceName:         envOr("MAA_VOICE_NAME", "Kore"),
		TickInterval:      envDurationOr("MAA_TICK_INTERVAL", 2*time.Second),
		PromoPollInterval: envDurationOr("MAA_PROMO_POLL_INTERVAL", 5*time.Second),
		ConnectTimeout:    envDurationOr("MAA_LIVE_CONNECT_TIMEOUT", 15*time.Second),
		WriteTimeout:      envDurationOr("MAA_LIVE_WRITE_TIMEOUT", 5*time.Second),
		MetricsAddr:       strings.TrimSpace(os.Getenv("MAA_METRICS_ADDR")),
	}

	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("MAA_TICK_INTERVAL must be > 0")
	}
	if cfg.PromoPollInterval <= 0 {
		return Config{}, fmt.Errorf("MAA_PROMO_POLL_INTERVAL must be > 0")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("MAA_LIVE_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.WriteTimeout <= 0 {
		return Config{}, fmt.Errorf("MAA_LIVE_WRITE_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.ChatModel) == "" {
		return Config{}, fmt.Errorf("MAA_CHAT_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.VoiceModel) == "" {
		return Config{}, fmt.Errorf("MAA_VOICE_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.VideoModel) == "" {
		return Config{}, fmt.Errorf("MAA_VIDEO_MODEL must not be empty")
	}

	return cfg, nil
}

// HasAPIKey reports whether a Gemini credential is configured. The assistant
// surfaces are disabled without one; tracking still runs.
func (c Config) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
