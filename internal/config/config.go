package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App         App         `yaml:"app" json:"app"`
	Provider    Provider    `yaml:"provider" json:"provider"`
	HTTP        HTTP        `yaml:"http" json:"http"`
	Search      Search      `yaml:"search" json:"search"`
	Dashboard   Dashboard   `yaml:"dashboard" json:"dashboard"`
	Maintenance Maintenance `yaml:"maintenance" json:"maintenance"`
	Events      Events      `yaml:"events" json:"events"`
}

type App struct {
	Port     int    `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

type Provider struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	SearchPath string `yaml:"search_path" json:"search_path"`
	SiteURL    string `yaml:"site_url" json:"site_url"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	// UseToken sends the keychain token as a bearer header when one is stored.
	UseToken bool `yaml:"use_token" json:"use_token"`
}

type HTTP struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries" json:"max_retries"`
	MinIntervalMS  int `yaml:"min_interval_ms" json:"min_interval_ms"`
	BackoffBaseMS  int `yaml:"backoff_base_ms" json:"backoff_base_ms"`
	BackoffMaxMS   int `yaml:"backoff_max_ms" json:"backoff_max_ms"`
}

func (h HTTP) Timeout() time.Duration     { return time.Duration(h.TimeoutSeconds) * time.Second }
func (h HTTP) MinInterval() time.Duration { return time.Duration(h.MinIntervalMS) * time.Millisecond }
func (h HTTP) BackoffBase() time.Duration { return time.Duration(h.BackoffBaseMS) * time.Millisecond }
func (h HTTP) BackoffMax() time.Duration  { return time.Duration(h.BackoffMaxMS) * time.Millisecond }

type Search struct {
	PageSizes       []int `yaml:"page_sizes" json:"page_sizes"`
	DefaultPageSize int   `yaml:"default_page_size" json:"default_page_size"`
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

func (s Search) CacheTTL() time.Duration { return time.Duration(s.CacheTTLSeconds) * time.Second }

type Dashboard struct {
	RecentLimit int `yaml:"recent_limit" json:"recent_limit"`
}

// Maintenance holds cron specs; an empty spec disables the task.
type Maintenance struct {
	CheckpointSchedule string `yaml:"checkpoint_schedule" json:"checkpoint_schedule"`
	CachePurgeSchedule string `yaml:"cache_purge_schedule" json:"cache_purge_schedule"`
}

// Events optionally mirrors UI events to a Redis channel.
type Events struct {
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	Channel  string `yaml:"channel" json:"channel"`
}

func Default() Config {
	return Config{
		App: App{Port: 38471, LogLevel: "info"},
		Provider: Provider{
			BaseURL:    "https://api.bdjobs.com",
			SearchPath: "/Jobs/api/JobSearch/GetJobSearch",
			SiteURL:    "https://bdjobs.com",
			UserAgent:  "JobPulse/1.0",
		},
		HTTP: HTTP{
			TimeoutSeconds: 30,
			MaxRetries:     3,
			MinIntervalMS:  500,
			BackoffBaseMS:  1000,
			BackoffMaxMS:   10000,
		},
		Search: Search{
			PageSizes:       []int{5, 10, 20, 50},
			DefaultPageSize: 10,
			CacheTTLSeconds: 300,
		},
		Dashboard: Dashboard{RecentLimit: 10},
		Maintenance: Maintenance{
			CheckpointSchedule: "@every 30m",
			CachePurgeSchedule: "@every 1m",
		},
		Events: Events{Channel: "jobpulse.events"},
	}
}

// Load reads path over the defaults, so missing keys keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
