// Package meta_test contains tests for the meta package.
package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rise-and-shine/dropsync/meta"
)

func TestInjectMetaToContext(t *testing.T) {
	tests := []struct {
		name        string
		initialCtx  context.Context
		metaData    map[meta.ContextKey]string
		keyToVerify meta.ContextKey
		valueExpect string
		nilValue    bool
	}{
		{
			name:        "inject single value",
			initialCtx:  t.Context(),
			metaData:    map[meta.ContextKey]string{meta.TraceID: "abc-123"},
			keyToVerify: meta.TraceID,
			valueExpect: "abc-123",
		},
		{
			name:       "inject multiple values",
			initialCtx: t.Context(),
			metaData: map[meta.ContextKey]string{
				meta.JobID:    "job-1",
				meta.FilePath: "/drop/a.mp4",
			},
			keyToVerify: meta.FilePath,
			valueExpect: "/drop/a.mp4",
		},
		{
			name:        "skip empty values",
			initialCtx:  t.Context(),
			metaData:    map[meta.ContextKey]string{meta.JobID: ""},
			keyToVerify: meta.JobID,
			nilValue:    true,
		},
		{
			name:        "overwrite existing value",
			initialCtx:  context.WithValue(t.Context(), meta.TraceID, "old"),
			metaData:    map[meta.ContextKey]string{meta.TraceID: "new"},
			keyToVerify: meta.TraceID,
			valueExpect: "new",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := meta.InjectMetaToContext(tc.initialCtx, tc.metaData)

			if tc.nilValue {
				assert.Nil(t, ctx.Value(tc.keyToVerify))
				return
			}
			assert.Equal(t, tc.valueExpect, ctx.Value(tc.keyToVerify))
		})
	}
}

func TestExtractMetaFromContext(t *testing.T) {
	ctx := t.Context()
	ctx = context.WithValue(ctx, meta.TraceID, "trace-1")
	ctx = context.WithValue(ctx, meta.JobID, 42) // not a string
	ctx = context.WithValue(ctx, meta.FilePath, "")
	ctx = context.WithValue(ctx, meta.Operation, "transfer")

	got := meta.ExtractMetaFromContext(ctx)

	assert.Equal(t, map[meta.ContextKey]string{
		meta.TraceID:   "trace-1",
		meta.Operation: "transfer",
	}, got)
}

func TestSetServiceInfo_OnlyFirstCallWins(t *testing.T) {
	meta.SetServiceInfo("dropsync", "1.0.0")
	meta.SetServiceInfo("other", "2.0.0")

	assert.Equal(t, "dropsync", meta.GetServiceName())
	assert.Equal(t, "1.0.0", meta.GetServiceVersion())
}
