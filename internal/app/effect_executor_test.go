package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/bidsfix/internal/core/effects"
)

func TestExecute_SidecarEffects(t *testing.T) {
	store := newMockSidecarStore()
	store.put("/a.json", `{"IntendedFor": ["old"]}`)
	store.put("/b.json", `{"EchoTime": 0.08}`)
	executor := NewEffectExecutor(store, nil)

	res, err := executor.Execute(context.Background(), []effects.Effect{
		effects.SidecarEffect{Operation: effects.SidecarSetField, Path: "/a.json", Field: "IntendedFor", Values: []string{"new"}},
		effects.CompositeEffect{Effects: []effects.Effect{
			effects.SidecarEffect{Operation: effects.SidecarRemoveField, Path: "/a.json", Field: "IntendedFor"},
			effects.SidecarEffect{Operation: effects.SidecarRemoveField, Path: "/b.json", Field: "IntendedFor"},
		}},
		effects.NoEffect{},
	})
	require.NoError(t, err)

	assert.Equal(t, ExecutionResult{Written: 3, Changed: 2, Removed: 1}, res)
	assert.Equal(t, "{}", store.get("/a.json"))
}

func TestExecute_OnlyChecksWrittenField(t *testing.T) {
	store := newMockSidecarStore()
	store.put("/a.json", `{"IntendedFor": ["bad"], "EchoTime": 0}`)
	store.put("/b.json", `{"PhaseEncodingDirection": "y"}`)
	executor := NewEffectExecutor(store, nil)

	res, err := executor.Execute(context.Background(), []effects.Effect{
		effects.SidecarEffect{Operation: effects.SidecarRemoveField, Path: "/a.json", Field: "IntendedFor"},
		effects.SidecarEffect{Operation: effects.SidecarSetField, Path: "/b.json", Field: "IntendedFor", Values: []string{"ses-1/func/a_bold.nii.gz"}},
	})
	require.NoError(t, err)

	assert.Equal(t, ExecutionResult{Written: 2, Changed: 2, Removed: 1}, res)
	assert.Equal(t, "{\n  \"EchoTime\": 0\n}", store.get("/a.json"))
	assert.Contains(t, store.get("/b.json"), `"PhaseEncodingDirection": "y"`)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		effect  effects.Effect
		wantErr string
	}{
		{
			name:    "unknown operation",
			effect:  effects.SidecarEffect{Operation: "rename", Path: "/a.json"},
			wantErr: "unknown sidecar operation: rename",
		},
		{
			name:    "missing sidecar",
			effect:  effects.SidecarEffect{Operation: effects.SidecarRemoveField, Path: "/missing.json", Field: "IntendedFor"},
			wantErr: "file does not exist",
		},
		{
			name:    "schema violation",
			effect:  effects.SidecarEffect{Operation: effects.SidecarSetField, Path: "/a.json", Field: "IntendedFor", Values: []string{""}},
			wantErr: "/a.json: schema validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockSidecarStore()
			store.put("/a.json", `{}`)
			executor := NewEffectExecutor(store, nil)

			_, err := executor.Execute(context.Background(), []effects.Effect{tt.effect})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, store.totalSaves())
		})
	}
}

func TestExecute_LogEffect(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	executor := NewEffectExecutor(newMockSidecarStore(), zap.New(core))

	_, err := executor.Execute(context.Background(), []effects.Effect{
		effects.LogEffect{Level: "warn", Message: "field maps not linked", Fields: map[string]any{"link": "task"}},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("field maps not linked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "task", entries[0].ContextMap()["link"])
}

func TestExecute_CanceledContext(t *testing.T) {
	store := newMockSidecarStore()
	store.put("/a.json", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEffectExecutor(store, nil).Execute(ctx, []effects.Effect{
		effects.SidecarEffect{Operation: effects.SidecarRemoveField, Path: "/a.json", Field: "IntendedFor"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.totalSaves())
}
