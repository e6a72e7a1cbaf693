// SPDX-License-Identifier: MIT

package config

import (
	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/validate"
)

// Validate checks a resolved configuration and reports every problem at once.
// Credentials are not required here; they may still come from a prompt or
// the legacy file.
func Validate(cfg Config) error {
	v := validate.New()

	v.OneOf("region", cfg.Region, []string{"DE", "CH"})
	v.Range("days", cfg.Days, MinDays, MaxDays)
	if !cfg.TVHeadend.Only {
		v.NotEmpty("output", cfg.Output)
	}
	v.OneOf("logLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	if cfg.Creds.Email != "" {
		v.Email("credentials.email", cfg.Creds.Email)
	}

	v.URL("zapi.baseUrl", cfg.ZAPI.BaseURL, []string{"http", "https"})
	v.PositiveDuration("zapi.timeout", cfg.ZAPI.Timeout)
	if cfg.ZAPI.RateLimit < 0 {
		v.AddError("zapi.rateLimit", "must not be negative", cfg.ZAPI.RateLimit)
	}
	v.UUID("zapi.deviceUuid", cfg.ZAPI.DeviceUUID)
	v.NotEmpty("zapi.userAgent", cfg.ZAPI.UserAgent)

	v.UTCOffset("xmltv.utcOffset", cfg.XMLTV.UTCOffset)
	v.Language("xmltv.lang", cfg.XMLTV.Lang)

	if cfg.TVHeadend.Enabled || cfg.TVHeadend.Only {
		v.NotEmpty("tvheadend.socket", cfg.TVHeadend.Socket)
	}

	v.OneOf("cache.backend", cfg.Cache.Backend, []string{cache.BackendNone, cache.BackendMemory, cache.BackendRedis})
	if cfg.Cache.Backend != cache.BackendNone {
		v.PositiveDuration("cache.ttl", cfg.Cache.TTL)
	}
	if cfg.Cache.Backend == cache.BackendRedis {
		v.NotEmpty("cache.redisAddr", cfg.Cache.RedisAddr)
		v.Range("cache.redisDb", cfg.Cache.RedisDB, 0, 15)
	}

	v.NotEmpty("serve.listen", cfg.Serve.Listen)
	v.PositiveDuration("serve.interval", cfg.Serve.Interval)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Ratio("telemetry.samplingRate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}
