// Package config loads go-props runtime settings from the environment.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/activity"
	"github.com/goliatone/go-props/pkg/metrics"
	"github.com/goliatone/go-props/pkg/store/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the environment driven settings.
type Config struct {
	NodeID           string `env:"PROPS_NODE_ID"`
	DefaultScope     string `env:"PROPS_DEFAULT_SCOPE" envDefault:"node"`
	ActivityEnabled  bool   `env:"PROPS_ACTIVITY_ENABLED" envDefault:"false"`
	ActivityChannel  string `env:"PROPS_ACTIVITY_CHANNEL" envDefault:"properties"`
	StorePath        string `env:"PROPS_STORE_PATH"`
	MetricsNamespace string `env:"PROPS_METRICS_NAMESPACE" envDefault:"props"`
}

// Load parses the environment and validates the default scope.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := props.ParseScope(cfg.DefaultScope); err != nil {
		return Config{}, fmt.Errorf("parse env: PROPS_DEFAULT_SCOPE: %w", err)
	}
	return cfg, nil
}

// Options translates cfg into construction options. hooks are only attached
// when activity is enabled.
func (cfg Config) Options(hooks activity.Hooks) []props.Option {
	var opts []props.Option
	if id := strings.TrimSpace(cfg.NodeID); id != "" {
		opts = append(opts, props.WithNodeID(id))
	}
	if scope, err := props.ParseScope(cfg.DefaultScope); err == nil {
		opts = append(opts, props.WithDefaultScope(scope))
	}
	if cfg.ActivityEnabled && len(hooks) > 0 {
		opts = append(opts, props.WithActivity(hooks, activity.Config{
			Enabled: true,
			Channel: cfg.ActivityChannel,
		}))
	}
	return opts
}

// OpenStores returns the flow and global stores for flowID. Without a
// StorePath it returns zero Stores (private memory stores) and a no-op
// closer. With a StorePath the flow scope uses namespace "flow:<flowID>" and
// the global scope uses namespace "global" in the same SQLite file. SQLite
// values round-trip as JSON, so a property rescoped into one of these stores
// reads back in its JSON shape (an int becomes a float64).
func (cfg Config) OpenStores(flowID string) (props.Stores, io.Closer, error) {
	path := strings.TrimSpace(cfg.StorePath)
	if path == "" {
		return props.Stores{}, nopCloser{}, nil
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return props.Stores{}, nil, err
	}
	return props.Stores{
		Flow:   db.Namespace("flow:" + flowID),
		Global: db.Namespace("global"),
	}, db, nil
}

// Metrics builds a collector under MetricsNamespace registered with reg.
func (cfg Config) Metrics(reg prometheus.Registerer) (*metrics.Collector, error) {
	return metrics.New(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithRegistry(reg),
	)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
