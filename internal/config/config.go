// Package config loads service configuration from the environment and an
// optional HCL file.
package config

import (
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable of the service. Environment variables use the
// TVG_ prefix, e.g. TVG_LISTEN_ADDR.
type Config struct {
	ListenAddr    string        `hcl:"listen_addr" env:"LISTEN_ADDR" default:"0.0.0.0:8080"`
	DatabasePath  string        `hcl:"database_path" env:"DATABASE_PATH" default:"tvguide.sqlite"`
	FeedURL       string        `hcl:"feed_url" env:"FEED_URL"`
	FetchInterval time.Duration `hcl:"fetch_interval" env:"FETCH_INTERVAL" default:"24h"`
	HTTPTimeout   time.Duration `hcl:"http_timeout" env:"HTTP_TIMEOUT" default:"30s"`
	LogLevel      string        `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
}

var (
	cfg  Config
	once sync.Once
)

// Get loads the configuration once and returns it on every call.
func Get() Config {
	once.Do(func() {
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			EnvPrefix: "TVG",
			// The service takes no command-line flags; without this the
			// loader would parse os.Args and fail on anything unknown.
			SkipFlags: true,
			Files:     []string{"./config.hcl", "./config.local.hcl"},
			FileDecoders: map[string]aconfig.FileDecoder{
				".hcl": aconfighcl.New(),
			},
		})
		if err := loader.Load(); err != nil {
			// Running on with a zero config only masks the problem.
			logrus.WithError(err).Fatal("failed to load config")
		}
	})
	return cfg
}
