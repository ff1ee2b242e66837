package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultScope != "node" || cfg.ActivityChannel != "properties" || cfg.MetricsNamespace != "props" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ActivityEnabled || cfg.StorePath != "" || cfg.NodeID != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROPS_NODE_ID", "n7")
	t.Setenv("PROPS_DEFAULT_SCOPE", "Flow")
	t.Setenv("PROPS_ACTIVITY_ENABLED", "true")
	t.Setenv("PROPS_ACTIVITY_CHANNEL", "audit")
	t.Setenv("PROPS_METRICS_NAMESPACE", "edge")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NodeID != "n7" || !cfg.ActivityEnabled || cfg.ActivityChannel != "audit" || cfg.MetricsNamespace != "edge" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsInvalidScope(t *testing.T) {
	t.Setenv("PROPS_DEFAULT_SCOPE", "cluster")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "PROPS_DEFAULT_SCOPE") {
		t.Fatalf("expected scope error, got %v", err)
	}
}

func TestLoadRejectsMalformedBool(t *testing.T) {
	t.Setenv("PROPS_ACTIVITY_ENABLED", "maybe")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestOptionsApplyToProperties(t *testing.T) {
	capture := &activity.CaptureHook{}
	cfg := Config{
		NodeID:          "n1",
		DefaultScope:    "flow",
		ActivityEnabled: true,
		ActivityChannel: "audit",
	}
	ctx := context.Background()
	p := props.New(ctx, nil, nil, []props.Definition{props.Define("mode")}, cfg.Options(activity.Hooks{capture})...)

	if p.NodeID() != "n1" {
		t.Fatalf("expected node id n1, got %q", p.NodeID())
	}
	if p.ScopeOf("mode") != props.ScopeFlow {
		t.Fatalf("expected flow default scope, got %q", p.ScopeOf("mode"))
	}
	if err := p.Set(ctx, "mode", "auto", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 || events[0].Channel != "audit" {
		t.Fatalf("expected one audit event, got %+v", events)
	}
}

func TestOptionsSkipActivityWhenDisabled(t *testing.T) {
	capture := &activity.CaptureHook{}
	cfg := Config{DefaultScope: "node"}
	ctx := context.Background()
	p := props.New(ctx, nil, nil, []props.Definition{props.Define("mode")}, cfg.Options(activity.Hooks{capture})...)
	_ = p.Set(ctx, "mode", "auto", nil)
	if n := len(capture.Events()); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestOpenStoresMemoryByDefault(t *testing.T) {
	stores, closer, err := Config{}.OpenStores("f1")
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	defer closer.Close()
	if stores.Flow != nil || stores.Global != nil {
		t.Fatalf("expected empty stores, got %+v", stores)
	}
}

func TestOpenStoresSharesSQLiteFlow(t *testing.T) {
	cfg := Config{DefaultScope: "flow", StorePath: filepath.Join(t.TempDir(), "props.db")}
	stores, closer, err := cfg.OpenStores("f1")
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close() })

	ctx := context.Background()
	defs := []props.Definition{props.Define("threshold")}
	writer := props.New(ctx, nil, nil, defs, append(cfg.Options(nil), props.WithStores(stores))...)
	reader := props.New(ctx, nil, nil, defs, append(cfg.Options(nil), props.WithStores(stores))...)

	if err := writer.Set(ctx, "threshold", 12, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok := reader.Get(ctx, "threshold")
	if !ok || value != float64(12) {
		t.Fatalf("expected shared JSON number 12, got %#v ok=%v", value, ok)
	}
}

func TestRescopeIntoSQLiteNormalisesTypes(t *testing.T) {
	cfg := Config{DefaultScope: "node", StorePath: filepath.Join(t.TempDir(), "props.db")}
	stores, closer, err := cfg.OpenStores("f2")
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close() })

	ctx := context.Background()
	if err := stores.Flow.Set(ctx, "window", "stale"); err != nil {
		t.Fatalf("seed flow: %v", err)
	}
	defs := []props.Definition{props.Define("count", props.Default(3)), props.Define("window")}
	p := props.New(ctx, nil, nil, defs, append(cfg.Options(nil), props.WithStores(stores))...)

	if err := p.SetScope(ctx, props.ScopeFlow, "count", "window"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if value, ok := p.Get(ctx, "count"); !ok || value != float64(3) {
		t.Fatalf("expected count as JSON number 3, got %#v ok=%v", value, ok)
	}
	if value, ok := p.Get(ctx, "window"); ok {
		t.Fatalf("expected window absent after rescope, got %#v", value)
	}
}

func TestMetricsUsesNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := Config{MetricsNamespace: "edge"}.Metrics(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	c.LogAssignment(props.AssignmentLogEvent{Op: props.OpAssign, Property: "mode", Source: props.SourceDirect})
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "edge_assignments_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected edge_assignments_total to be registered")
	}
}
