// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/log"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "ZATTOO_"

type envBinding struct {
	key   string
	apply func(cfg *Config, value string) error
}

func stringVar(get func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*get(cfg) = v
		return nil
	}
}

func intVar(get func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*get(cfg) = i
		return nil
	}
}

func boolVar(get func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*get(cfg) = b
		return nil
	}
}

func floatVar(get func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*get(cfg) = f
		return nil
	}
}

func durationVar(get func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*get(cfg) = d
		return nil
	}
}

// envBindings lists every supported variable, without the prefix.
var envBindings = []envBinding{
	{"REGION", stringVar(func(c *Config) *string { return &c.Region })},
	{"DAYS", intVar(func(c *Config) *int { return &c.Days })},
	{"OUTPUT", stringVar(func(c *Config) *string { return &c.Output })},
	{"NO_DETAILS", boolVar(func(c *Config) *bool { return &c.NoDetails })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"EMAIL", stringVar(func(c *Config) *string { return &c.Creds.Email })},
	{"PASSWORD", stringVar(func(c *Config) *string { return &c.Creds.Password })},
	{"CREDENTIALS_FILE", stringVar(func(c *Config) *string { return &c.Creds.File })},
	{"BASE_URL", stringVar(func(c *Config) *string { return &c.ZAPI.BaseURL })},
	{"TIMEOUT", durationVar(func(c *Config) *time.Duration { return &c.ZAPI.Timeout })},
	{"RATE_LIMIT", floatVar(func(c *Config) *float64 { return &c.ZAPI.RateLimit })},
	{"DEVICE_UUID", stringVar(func(c *Config) *string { return &c.ZAPI.DeviceUUID })},
	{"USER_AGENT", stringVar(func(c *Config) *string { return &c.ZAPI.UserAgent })},
	{"UTC_OFFSET", stringVar(func(c *Config) *string { return &c.XMLTV.UTCOffset })},
	{"LANG", stringVar(func(c *Config) *string { return &c.XMLTV.Lang })},
	{"DEDUPE", boolVar(func(c *Config) *bool { return &c.EPG.Dedupe })},
	{"TVHEADEND", boolVar(func(c *Config) *bool { return &c.TVHeadend.Enabled })},
	{"TVHEADEND_ONLY", boolVar(func(c *Config) *bool { return &c.TVHeadend.Only })},
	{"TVHEADEND_SOCKET", stringVar(func(c *Config) *string { return &c.TVHeadend.Socket })},
	{"CACHE_BACKEND", stringVar(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_TTL", durationVar(func(c *Config) *time.Duration { return &c.Cache.TTL })},
	{"REDIS_ADDR", stringVar(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"REDIS_DB", intVar(func(c *Config) *int { return &c.Cache.RedisDB })},
	{"LISTEN", stringVar(func(c *Config) *string { return &c.Serve.Listen })},
	{"INTERVAL", durationVar(func(c *Config) *time.Duration { return &c.Serve.Interval })},
	{"HISTORY_PATH", stringVar(func(c *Config) *string { return &c.History.Path })},
	{"TELEMETRY_ENABLED", boolVar(func(c *Config) *bool { return &c.Telemetry.Enabled })},
	{"TELEMETRY_EXPORTER", stringVar(func(c *Config) *string { return &c.Telemetry.Exporter })},
	{"TELEMETRY_ENDPOINT", stringVar(func(c *Config) *string { return &c.Telemetry.Endpoint })},
	{"TELEMETRY_SAMPLING_RATE", floatVar(func(c *Config) *float64 { return &c.Telemetry.SamplingRate })},
}

// applyEnv overrides cfg with every set, non-empty ZATTOO_* variable.
func (l *Loader) applyEnv(cfg *Config) error {
	logger := log.WithComponent("config")
	for _, b := range envBindings {
		key := EnvPrefix + b.key
		v, ok := l.lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ev := logger.Debug().Str("key", key).Str("source", "environment")
		if isSensitive(key) {
			ev = ev.Bool("sensitive", true)
		} else {
			ev = ev.Str("value", v)
		}
		ev.Msg("using environment variable")
	}
	return nil
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "email")
}

// EnvKeys returns every recognised variable name.
func EnvKeys() []string {
	keys := make([]string, len(envBindings))
	for i, b := range envBindings {
		keys[i] = EnvPrefix + b.key
	}
	return keys
}
