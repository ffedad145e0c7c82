package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/store"
	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

func TestProfileService_SaveGetReset(t *testing.T) {
	svc := NewProfileService(store.NewMemoryProfileStore())
	ctx := t.Context()

	doc, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = svc.Save(ctx, "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", doc["id"])
	assert.Contains(t, doc, "lastActive")

	require.NoError(t, svc.Reset(ctx, "p1"))
	doc, err = svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestProfileService_AppendChatMessage(t *testing.T) {
	svc := NewProfileService(store.NewMemoryProfileStore())
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	doc, err := svc.AppendChatMessage(t.Context(), "p1", domain.ChatMessage{Role: domain.RoleUser, Content: " hi "})
	require.NoError(t, err)
	entry := doc.ChatHistory()[0].(map[string]any)
	assert.Equal(t, "hi", entry["content"])
	assert.Equal(t, fixed.Format(time.RFC3339Nano), entry["timestamp"])

	_, err = svc.AppendChatMessage(t.Context(), "p1", domain.ChatMessage{Role: "system", Content: ""})
	var ve *port.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "role")
	assert.Contains(t, ve.Fields, "content")
}
