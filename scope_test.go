package props

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-props/pkg/store"
)

var _ Deleter = (*store.MemoryStore)(nil)

func TestSetScopeMigratesValue(t *testing.T) {
	node := store.NewMemoryStore()
	flow := store.NewMemoryStore()
	p, host := newTestProps(t, nil,
		[]Definition{Define("y", Default(5), InScope(ScopeNode))},
		WithStores(Stores{Node: node, Flow: flow}),
	)
	ctx := context.Background()

	if err := p.SetScope(ctx, ScopeFlow, "y"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if p.ScopeOf("y") != ScopeFlow {
		t.Fatalf("expected y bound to flow, got %s", p.ScopeOf("y"))
	}
	if got, _, _ := flow.Get(ctx, "y"); got != 5 {
		t.Fatalf("expected 5 in flow store, got %v", got)
	}
	if got := mustGet(t, p, "y"); got != 5 {
		t.Fatalf("expected get to read 5 from flow, got %v", got)
	}

	if err := p.Set(ctx, "y", 6, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _, _ := flow.Get(ctx, "y"); got != 6 {
		t.Fatalf("expected subsequent writes in flow, got %v", got)
	}
	if got, _, _ := node.Get(ctx, "y"); got != 5 {
		t.Fatalf("expected stale node copy untouched, got %v", got)
	}
	if host.count() != 0 {
		t.Fatalf("unexpected warnings: %v", host.warnings)
	}
}

func TestSetScopeSharesFlowStoreBetweenNodes(t *testing.T) {
	flow := store.NewMemoryStore()
	defs := []Definition{Define("threshold", InScope(ScopeFlow))}
	a, _ := newTestProps(t, nil, defs, WithStores(Stores{Flow: flow}))
	b, _ := newTestProps(t, nil, defs, WithStores(Stores{Flow: flow}))
	ctx := context.Background()

	a.Input(ctx, Message{"topic": "threshold", "payload": 9})
	if got := mustGet(t, b, "threshold"); got != 9 {
		t.Fatalf("expected sibling node to observe flow value, got %v", got)
	}
}

func TestSetScopeWithoutNamesMovesUnboundProperties(t *testing.T) {
	global := store.NewMemoryStore()
	p, _ := newTestProps(t, nil,
		[]Definition{
			Define("loose", Default("a")),
			Define("pinned", Default("b"), InScope(ScopeNode)),
			Define("empty"),
		},
		WithStores(Stores{Global: global}),
	)
	ctx := context.Background()

	if err := p.SetScope(ctx, ScopeGlobal); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if p.DefaultScope() != ScopeGlobal {
		t.Fatalf("expected default scope global, got %s", p.DefaultScope())
	}
	if p.ScopeOf("loose") != ScopeGlobal || p.ScopeOf("empty") != ScopeGlobal {
		t.Fatalf("expected unbound properties to follow the default")
	}
	if p.ScopeOf("pinned") != ScopeNode {
		t.Fatalf("expected explicit binding to stay on node, got %s", p.ScopeOf("pinned"))
	}
	if got, _, _ := global.Get(ctx, "loose"); got != "a" {
		t.Fatalf("expected loose migrated into global, got %v", got)
	}
	if _, ok, _ := global.Get(ctx, "empty"); ok {
		t.Fatalf("expected absent value not to be written")
	}
}

func TestSetScopeClearsStaleCopyForAbsentValue(t *testing.T) {
	flow := store.NewMemoryStore()
	ctx := context.Background()
	if err := flow.Set(ctx, "y", "stale"); err != nil {
		t.Fatalf("seed flow: %v", err)
	}
	p, host := newTestProps(t, nil,
		[]Definition{Define("y", InScope(ScopeNode))},
		WithStores(Stores{Flow: flow}),
	)

	if _, ok := p.Get(ctx, "y"); ok {
		t.Fatalf("expected y absent before migration")
	}
	if err := p.SetScope(ctx, ScopeFlow, "y"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if value, ok := p.Get(ctx, "y"); ok {
		t.Fatalf("expected y still absent after migration, got %v", value)
	}
	if _, ok, _ := flow.Get(ctx, "y"); ok {
		t.Fatalf("expected stale flow copy removed")
	}
	if host.count() != 0 {
		t.Fatalf("unexpected warnings: %v", host.warnings)
	}
}

func TestSetScopeKeepsCopyWhenStoreCannotDelete(t *testing.T) {
	flow := newCountingStore()
	flow.values["y"] = "kept"
	p, _ := newTestProps(t, nil,
		[]Definition{Define("y", InScope(ScopeNode))},
		WithStores(Stores{Flow: flow}),
	)
	ctx := context.Background()

	if err := p.SetScope(ctx, ScopeFlow, "y"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if got := mustGet(t, p, "y"); got != "kept" {
		t.Fatalf("expected existing flow copy, got %v", got)
	}
	if flow.sets != 0 {
		t.Fatalf("expected no write for absent value, got %d", flow.sets)
	}
}

func TestSetScopeDoesNotRunHandlers(t *testing.T) {
	p, _ := newTestProps(t, nil, []Definition{Define("v", Default(1))})
	called := false
	_ = p.StoreHandle(func(context.Context, any, Message, string) error {
		called = true
		return nil
	}, "v")
	if err := p.SetScope(context.Background(), ScopeFlow, "v"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if called {
		t.Fatalf("expected migration to bypass handlers")
	}
	if got := mustGet(t, p, "v"); got != 1 {
		t.Fatalf("expected migrated value, got %v", got)
	}
}

func TestSetScopeValidation(t *testing.T) {
	p, host := newTestProps(t, nil, []Definition{Define("a", Default(1)), Define("b", Default(2))})
	ctx := context.Background()

	if err := p.SetScope(ctx, "cluster", "a"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
	if err := p.SetScope(ctx, ScopeFlow, "a", "ghost"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if p.ScopeOf("a") != ScopeNode {
		t.Fatalf("expected a to stay on node after rejected call, got %s", p.ScopeOf("a"))
	}
	if host.count() != 2 {
		t.Fatalf("expected two warnings, got %v", host.warnings)
	}
}

func TestSetScopeSameScopeIsNoop(t *testing.T) {
	node := newCountingStore()
	p, _ := newTestProps(t, nil, []Definition{Define("a", Default(1))}, WithStores(Stores{Node: node}))
	writes := node.sets
	if err := p.SetScope(context.Background(), ScopeNode, "a"); err != nil {
		t.Fatalf("set scope: %v", err)
	}
	if node.sets != writes {
		t.Fatalf("expected no write when scope is unchanged")
	}
}

func TestStoreFailuresAreReported(t *testing.T) {
	failing := newCountingStore()
	failing.setErr = errors.New("disk full")
	failing.getErr = errors.New("disk gone")
	p, host := newTestProps(t, nil, []Definition{Define("a")}, WithStores(Stores{Node: failing}))
	ctx := context.Background()

	err := p.Set(ctx, "a", 1, nil)
	var propErr *PropertyError
	if !errors.As(err, &propErr) || propErr.Scope != "node" {
		t.Fatalf("expected PropertyError for node scope, got %v", err)
	}
	if _, ok := p.Get(ctx, "a"); ok {
		t.Fatalf("expected failed read to report absent")
	}
	if err := p.SetScope(ctx, ScopeFlow, "a"); err == nil {
		t.Fatalf("expected migration read failure")
	}
	if p.ScopeOf("a") != ScopeNode {
		t.Fatalf("expected binding unchanged after failed read")
	}
	if host.count() != 3 {
		t.Fatalf("expected three warnings, got %v", host.warnings)
	}
}

func TestGetUnknownWarns(t *testing.T) {
	p, host := newTestProps(t, nil, nil)
	if _, ok := p.Get(context.Background(), "ghost"); ok {
		t.Fatalf("expected unknown property to read as absent")
	}
	if err := p.SetRaw(context.Background(), "ghost", 1); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if host.count() != 2 {
		t.Fatalf("expected two warnings, got %v", host.warnings)
	}
}

func TestParseScope(t *testing.T) {
	for input, want := range map[string]ScopeName{"node": ScopeNode, " Flow ": ScopeFlow, "GLOBAL": ScopeGlobal} {
		got, err := ParseScope(input)
		if err != nil || got != want {
			t.Fatalf("ParseScope(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseScope("cluster"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}
