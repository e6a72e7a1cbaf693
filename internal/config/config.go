// SPDX-License-Identifier: MIT

// Package config loads zattoo-epg settings with the precedence
// ENV > YAML file > defaults and hot-reloads the file in serve mode.
package config

import (
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/cache"
	"github.com/domevanzy/Zattoo-EPG/internal/delivery"
	"github.com/domevanzy/Zattoo-EPG/internal/epg"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// Defaults that are not owned by another package.
const (
	DefaultRegion          = "DE"
	DefaultDays            = 7
	DefaultOutput          = "zattoo_epg.xml"
	DefaultLogLevel        = "info"
	DefaultCredentialsFile = "config.json"
	DefaultListen          = ":8080"
	DefaultServeInterval   = 12 * time.Hour
	DefaultCacheTTL        = 24 * time.Hour
	DefaultHistoryPath     = "zattoo-epg.sqlite"
	DefaultRateLimit       = 4.0

	MinDays = 1
	MaxDays = 14
)

// Config is the fully resolved application configuration.
type Config struct {
	Region    string          `yaml:"region"`
	Days      int             `yaml:"days"`
	Output    string          `yaml:"output"`
	NoDetails bool            `yaml:"noDetails"`
	LogLevel  string          `yaml:"logLevel"`
	Creds     CredentialsConf `yaml:"credentials"`
	ZAPI      ZAPIConf        `yaml:"zapi"`
	XMLTV     XMLTVConf       `yaml:"xmltv"`
	EPG       EPGConf         `yaml:"epg"`
	TVHeadend TVHeadendConf   `yaml:"tvheadend"`
	Cache     CacheConf       `yaml:"cache"`
	Serve     ServeConf       `yaml:"serve"`
	History   HistoryConf     `yaml:"history"`
	Telemetry TelemetryConf   `yaml:"telemetry"`
}

// CredentialsConf holds the account login. File points at a legacy JSON
// credentials file used when Email is empty.
type CredentialsConf struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	File     string `yaml:"file"`
}

// ZAPIConf tunes the upstream client.
type ZAPIConf struct {
	BaseURL    string        `yaml:"baseUrl"`
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  float64       `yaml:"rateLimit"`
	DeviceUUID string        `yaml:"deviceUuid"`
	UserAgent  string        `yaml:"userAgent"`
}

// XMLTVConf controls document rendering.
type XMLTVConf struct {
	UTCOffset string `yaml:"utcOffset"`
	Lang      string `yaml:"lang"`
}

// EPGConf toggles listing post-processing.
type EPGConf struct {
	Dedupe bool `yaml:"dedupe"`
}

// TVHeadendConf controls socket delivery.
type TVHeadendConf struct {
	Enabled bool   `yaml:"enabled"`
	Only    bool   `yaml:"only"`
	Socket  string `yaml:"socket"`
}

// CacheConf selects the detail cache backend.
type CacheConf struct {
	Backend   string        `yaml:"backend"`
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redisAddr"`
	RedisDB   int           `yaml:"redisDb"`
}

// ServeConf controls the long-running mode.
type ServeConf struct {
	Listen   string        `yaml:"listen"`
	Interval time.Duration `yaml:"interval"`
}

// HistoryConf locates the run history database. An empty path disables it.
type HistoryConf struct {
	Path string `yaml:"path"`
}

// TelemetryConf configures tracing export.
type TelemetryConf struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns a Config populated with built-in values.
func Defaults() Config {
	return Config{
		Region:   DefaultRegion,
		Days:     DefaultDays,
		Output:   DefaultOutput,
		LogLevel: DefaultLogLevel,
		Creds: CredentialsConf{
			File: DefaultCredentialsFile,
		},
		ZAPI: ZAPIConf{
			BaseURL:    zapi.DefaultBaseURL,
			Timeout:    zapi.DefaultTimeout,
			RateLimit:  DefaultRateLimit,
			DeviceUUID: zapi.DefaultDeviceUUID,
			UserAgent:  zapi.DefaultUserAgent,
		},
		XMLTV: XMLTVConf{
			UTCOffset: epg.DefaultUTCOffset,
			Lang:      epg.DefaultLang,
		},
		TVHeadend: TVHeadendConf{
			Socket: delivery.DefaultTVHeadendSocket,
		},
		Cache: CacheConf{
			Backend: cache.BackendNone,
			TTL:     DefaultCacheTTL,
		},
		Serve: ServeConf{
			Listen:   DefaultListen,
			Interval: DefaultServeInterval,
		},
		History: HistoryConf{
			Path: DefaultHistoryPath,
		},
		Telemetry: TelemetryConf{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
