package memstore_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-authstate"
	"github.com/goliatone/go-authstate/profile/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDocumentMissing(t *testing.T) {
	store := memstore.New()

	_, err := store.GetDocument(context.Background(), "users", "nope")
	require.Error(t, err)
	assert.True(t, authstate.IsDocumentNotFound(err))
}

func TestSetAndGetDocument(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	doc := authstate.Document{
		"uid":      "u1",
		"userRole": "mentee",
		"settings": map[string]any{"theme": "dark"},
	}
	require.NoError(t, store.SetDocument(ctx, "users", "u1", doc, false))

	got, err := store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "mentee", got["userRole"])

	// Mutating either side must not leak into the other.
	doc["userRole"] = "mentor"
	got["uid"] = "tampered"

	fresh, err := store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "mentee", fresh["userRole"])
	assert.Equal(t, "u1", fresh["uid"])

	nested, ok := fresh["settings"].(map[string]any)
	require.True(t, ok)
	nested["theme"] = "light"

	fresh, err = store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "dark", fresh["settings"].(map[string]any)["theme"])
}

func TestMergeDocument(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{
		"uid":            "u1",
		"firstTimeLogin": true,
		"settings":       map[string]any{"theme": "dark", "lang": "en"},
	}, false))

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{
		"firstTimeLogin": false,
		"settings":       map[string]any{"theme": "light"},
	}, true))

	got, err := store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got["uid"], "merge keeps untouched keys")
	assert.Equal(t, false, got["firstTimeLogin"])

	settings := got["settings"].(map[string]any)
	assert.Equal(t, "light", settings["theme"], "nested maps merge key by key")
	assert.Equal(t, "en", settings["lang"])
}

func TestReplaceDocument(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{
		"uid":      "u1",
		"userRole": "mentee",
	}, false))

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{
		"uid": "u1",
	}, false))

	got, err := store.GetDocument(ctx, "users", "u1")
	require.NoError(t, err)
	_, hasRole := got["userRole"]
	assert.False(t, hasRole, "replace drops keys absent from the new document")
}

func TestDeleteDocument(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	require.NoError(t, store.DeleteDocument(ctx, "users", "nope"))

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{"uid": "u1"}, false))
	require.NoError(t, store.DeleteDocument(ctx, "users", "u1"))

	_, err := store.GetDocument(ctx, "users", "u1")
	assert.True(t, authstate.IsDocumentNotFound(err))
}

func TestCollectionsAreIsolated(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "users", "u1", authstate.Document{"uid": "u1"}, false))

	_, err := store.GetDocument(ctx, "profiles", "u1")
	assert.True(t, authstate.IsDocumentNotFound(err))
}
