package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elitetrace/factcheckd/internal/store"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "empty", key: "", want: "(not set)"},
		{name: "short", key: "abc", want: "********"},
		{name: "long", key: "AIzaSyExampleKey1234", want: "AIza...1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskKey(tt.key))
		})
	}
}

func TestKeyedStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SetAPIKey("stored-key"))

	t.Run("override wins", func(t *testing.T) {
		ks := &keyedStore{Store: st, overrideKey: "flag-key"}
		key, err := ks.APIKey()
		require.NoError(t, err)
		assert.Equal(t, "flag-key", key)
	})

	t.Run("falls back to stored", func(t *testing.T) {
		ks := &keyedStore{Store: st}
		key, err := ks.APIKey()
		require.NoError(t, err)
		assert.Equal(t, "stored-key", key)
	})
}

func TestResolveInputRequiresExactlyOneSource(t *testing.T) {
	checkFile = ""
	checkURL = ""
	t.Cleanup(func() { checkFile, checkURL = "", "" })

	_, _, err := resolveInput(context.Background(), nil, false, false)
	assert.Error(t, err)

	checkFile = "notes.txt"
	_, _, err = resolveInput(context.Background(), []string{"some claim"}, false, false)
	assert.Error(t, err)
}

func TestResolveInputFromArgument(t *testing.T) {
	checkFile = ""
	checkURL = ""

	text, meta, err := resolveInput(context.Background(), []string{"The Moon is made of rock."}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "The Moon is made of rock.", text)
	assert.Nil(t, meta)
}
