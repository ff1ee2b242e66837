package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type nodeSettings struct {
	Mode      string   `json:"mode"`
	Threshold int      `json:"threshold"`
	Window    window   `json:"window"`
	Tags      []string `json:"tags"`
}

type window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		ctx       Context
		input     map[string]any
		opts      []DecoderOption[nodeSettings]
		want      nodeSettings
		expectErr string
	}{
		{
			name:  "plain snapshot",
			ctx:   Context{Node: "n1"},
			input: map[string]any{"mode": "auto", "threshold": 7},
			want:  nodeSettings{Mode: "auto", Threshold: 7},
		},
		{
			name:  "nil snapshot decodes zero value",
			ctx:   Context{Node: "n1"},
			input: nil,
			want:  nodeSettings{},
		},
		{
			name:  "pre hook splits window",
			ctx:   Context{Node: "n1"},
			input: map[string]any{"window": "08:00-17:00"},
			opts:  []DecoderOption[nodeSettings]{WithPreHook[nodeSettings](windowPreHook)},
			want:  nodeSettings{Window: window{Start: "08:00", End: "17:00"}},
		},
		{
			name:      "pre hook failure is wrapped",
			ctx:       Context{Node: "n2"},
			input:     map[string]any{"window": "broken"},
			opts:      []DecoderOption[nodeSettings]{WithPreHook[nodeSettings](windowPreHook)},
			expectErr: `pre-hook for node "n2" failed`,
		},
		{
			name:  "post hook tags node",
			ctx:   Context{Node: "n3"},
			input: map[string]any{"mode": "manual"},
			opts:  []DecoderOption[nodeSettings]{WithPostHook[nodeSettings](tagPostHook)},
			want:  nodeSettings{Mode: "manual", Tags: []string{"node:n3"}},
		},
		{
			name:      "unknown fields rejected when strict",
			ctx:       Context{Node: "n4"},
			input:     map[string]any{"mode": "auto", "extra": true},
			opts:      []DecoderOption[nodeSettings]{WithDisallowUnknownFields[nodeSettings]()},
			expectErr: "unknown field",
		},
		{
			name:      "type mismatch reports node",
			ctx:       Context{Node: "n5"},
			input:     map[string]any{"threshold": "high"},
			expectErr: `decode node "n5"`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewDecoder(tc.opts...).Decode(tc.ctx, tc.input)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.want, got) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.want, got)
			}
		})
	}
}

func TestDecoderUseNumber(t *testing.T) {
	type loose struct {
		Count any `json:"count"`
	}
	got, err := NewDecoder(WithUseNumber[loose]()).Decode(Context{}, map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got.Count.(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", got.Count)
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"window": "01:00-02:00"}
	copyHook := func(_ Context, payload map[string]any) (map[string]any, error) {
		out := map[string]any{}
		for k, v := range payload {
			out[k] = v
		}
		out["window"] = map[string]any{"start": "x", "end": "y"}
		return out, nil
	}
	if _, err := NewDecoder(WithPreHook[nodeSettings](copyHook)).Decode(Context{}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["window"] != "01:00-02:00" {
		t.Fatalf("expected input untouched, got %v", input["window"])
	}
}

func windowPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["window"].(string)
	if !ok || value == "" {
		return payload, nil
	}
	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid window %q", value)
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	out["window"] = map[string]any{
		"start": strings.TrimSpace(parts[0]),
		"end":   strings.TrimSpace(parts[1]),
	}
	return out, nil
}

func tagPostHook(ctx Context, settings *nodeSettings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}
	if len(settings.Tags) == 0 {
		settings.Tags = []string{"node:" + ctx.Node}
	}
	return nil
}
