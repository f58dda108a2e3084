package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	// ---- app ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	out.App.LogLevel = strings.ToLower(strings.TrimSpace(out.App.LogLevel))
	switch out.App.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		out.App.LogLevel = "info"
	default:
		res.addWarn("app.log_level %q is unknown; using info", out.App.LogLevel)
		out.App.LogLevel = "info"
	}

	// ---- provider ----

	out.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(out.Provider.BaseURL), "/")
	out.Provider.SiteURL = strings.TrimRight(strings.TrimSpace(out.Provider.SiteURL), "/")
	out.Provider.SearchPath = strings.TrimSpace(out.Provider.SearchPath)
	if out.Provider.SearchPath != "" && !strings.HasPrefix(out.Provider.SearchPath, "/") {
		out.Provider.SearchPath = "/" + out.Provider.SearchPath
	}
	checkURL := func(name, raw string) {
		u, err := url.Parse(raw)
		if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("%s must be an absolute http(s) URL", name)
		}
	}
	checkURL("provider.base_url", out.Provider.BaseURL)
	checkURL("provider.site_url", out.Provider.SiteURL)
	if out.Provider.SearchPath == "" {
		res.addErr("provider.search_path is required")
	}
	if strings.TrimSpace(out.Provider.UserAgent) == "" {
		res.addWarn("provider.user_agent is empty; the provider may reject anonymous clients.")
	}

	// ---- http ----

	if out.HTTP.TimeoutSeconds <= 0 {
		res.addErr("http.timeout_seconds must be > 0")
	}
	if out.HTTP.MaxRetries < 0 {
		res.addErr("http.max_retries must be >= 0")
	} else if out.HTTP.MaxRetries > 5 {
		res.addWarn("http.max_retries is high (%d); a failing provider will keep searches hanging.", out.HTTP.MaxRetries)
	}
	if out.HTTP.MinIntervalMS < 0 {
		res.addErr("http.min_interval_ms must be >= 0")
	} else if out.HTTP.MinIntervalMS < 200 {
		res.addWarn("http.min_interval_ms is very low (%d) and may cause rate limits.", out.HTTP.MinIntervalMS)
	}
	if out.HTTP.BackoffBaseMS <= 0 {
		res.addErr("http.backoff_base_ms must be > 0")
	}
	if out.HTTP.BackoffMaxMS < out.HTTP.BackoffBaseMS {
		res.addErr("http.backoff_max_ms must be >= http.backoff_base_ms")
	}

	// ---- search ----

	sizes := slices.Clone(out.Search.PageSizes)
	slices.Sort(sizes)
	out.Search.PageSizes = slices.Compact(sizes)
	if len(out.Search.PageSizes) == 0 {
		res.addErr("search.page_sizes must have at least 1 entry")
	}
	for _, n := range out.Search.PageSizes {
		if n <= 0 {
			res.addErr("search.page_sizes entries must be > 0 (got %d)", n)
			break
		}
	}
	if !slices.Contains(out.Search.PageSizes, out.Search.DefaultPageSize) {
		res.addErr("search.default_page_size %d is not one of search.page_sizes", out.Search.DefaultPageSize)
	}
	if out.Search.CacheTTLSeconds < 0 {
		res.addErr("search.cache_ttl_seconds must be >= 0")
	} else if out.Search.CacheTTLSeconds == 0 {
		res.addWarn("search.cache_ttl_seconds is 0; every page change hits the provider.")
	}

	// ---- dashboard ----

	if out.Dashboard.RecentLimit <= 0 || out.Dashboard.RecentLimit > 100 {
		res.addErr("dashboard.recent_limit must be 1..100")
	}

	// ---- maintenance ----

	for name, spec := range map[string]*string{
		"maintenance.checkpoint_schedule":  &out.Maintenance.CheckpointSchedule,
		"maintenance.cache_purge_schedule": &out.Maintenance.CachePurgeSchedule,
	} {
		*spec = strings.TrimSpace(*spec)
		if *spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(*spec); err != nil {
			res.addErr("%s: %v", name, err)
		}
	}

	// ---- events ----

	out.Events.RedisURL = strings.TrimSpace(out.Events.RedisURL)
	out.Events.Channel = strings.TrimSpace(out.Events.Channel)
	if out.Events.RedisURL != "" {
		if _, err := redis.ParseURL(out.Events.RedisURL); err != nil {
			res.addErr("events.redis_url: %v", err)
		}
		if out.Events.Channel == "" {
			res.addErr("events.channel is required when events.redis_url is set")
		}
	}

	return out, res
}
