package props

import (
	"context"
	"testing"
)

func TestResolveOrdering(t *testing.T) {
	p, _ := newTestProps(t, nil, []Definition{Define("b"), Define("a"), Define("c")})

	cases := []struct {
		name string
		msg  Message
		want []Assignment
	}{
		{
			name: "empty message",
			msg:  nil,
			want: nil,
		},
		{
			name: "fields follow declaration order",
			msg:  Message{"a": 1, "b": 2, "zzz": 3},
			want: []Assignment{
				{Name: "b", Value: 2, Source: SourceField},
				{Name: "a", Value: 1, Source: SourceField},
			},
		},
		{
			name: "topic match after field match",
			msg:  Message{"a": "field", "topic": "a", "payload": "topic"},
			want: []Assignment{
				{Name: "a", Value: "field", Source: SourceField},
				{Name: "a", Value: "topic", Source: SourceTopic},
			},
		},
		{
			name: "unknown topic ignored",
			msg:  Message{"topic": "ghost", "payload": 1},
			want: nil,
		},
		{
			name: "non string topic ignored",
			msg:  Message{"topic": 7, "payload": 1},
			want: nil,
		},
		{
			name: "topic without payload assigns nil",
			msg:  Message{"topic": "c"},
			want: []Assignment{{Name: "c", Value: nil, Source: SourceTopic}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := p.Resolve(tc.msg)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d assignments, got %d: %+v", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i].Name != tc.want[i].Name || got[i].Value != tc.want[i].Value || got[i].Source != tc.want[i].Source {
					t.Fatalf("assignment %d: want %+v got %+v", i, tc.want[i], got[i])
				}
				if got[i].Message == nil {
					t.Fatalf("assignment %d: expected originating message", i)
				}
			}
		})
	}
}

func TestInputReportsMatchesWithoutWarnings(t *testing.T) {
	p, host := newTestProps(t, nil, []Definition{Define("mode")})
	ctx := context.Background()

	if p.Input(ctx, Message{"other": 1, "topic": "ghost"}) {
		t.Fatalf("expected no match")
	}
	if !p.Input(ctx, Message{"mode": nil}) {
		t.Fatalf("expected nil field to match")
	}
	if got, ok := p.Get(ctx, "mode"); !ok || got != nil {
		t.Fatalf("expected stored nil, got %v ok=%v", got, ok)
	}
	if host.count() != 0 {
		t.Fatalf("unknown fields must be ignored silently, got %v", host.warnings)
	}
}

func TestInputContinuesAfterHandlerFailure(t *testing.T) {
	p, host := newTestProps(t, nil, []Definition{Define("a"), Define("b")})
	_ = p.PreHandle(func(context.Context, any, Message, string) error { return ErrInvalidHandler }, "a")

	p.Input(context.Background(), Message{"a": 1, "b": 2})

	if _, ok := p.Get(context.Background(), "a"); ok {
		t.Fatalf("expected a to be skipped")
	}
	if got := mustGet(t, p, "b"); got != 2 {
		t.Fatalf("expected b to be stored despite a failing, got %v", got)
	}
	if host.count() != 1 {
		t.Fatalf("expected one warning, got %v", host.warnings)
	}
}

func TestMessageHelpers(t *testing.T) {
	msg := Message{"topic": "mode", "payload": nil}
	if topic, ok := msg.Topic(); !ok || topic != "mode" {
		t.Fatalf("unexpected topic %q ok=%v", topic, ok)
	}
	if !msg.Has("payload") || msg.Has("missing") {
		t.Fatalf("unexpected Has results")
	}
	if _, ok := (Message{}).Topic(); ok {
		t.Fatalf("expected missing topic")
	}
}
