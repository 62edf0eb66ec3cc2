package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
	"github.com/codegraphd/codegraphd/extract/python"
	"github.com/codegraphd/codegraphd/graphstore"
)

func newRegistry() *extract.Registry {
	r := extract.New()
	r.Register(python.New(), ".py")
	return r
}

func TestApplier_AppliesCreatesAndDeletes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("import os\n"), 0o644))

	store := graphstore.New()
	a := &Applier{Store: store, Pool: NewPool(dir, newRegistry(), 2)}

	a.apply(context.Background(), Batch{Creates: []string{"a.py"}}, nil)
	node, err := store.Node("a.py")
	require.NoError(t, err)
	assert.Equal(t, "python", node.Language)

	a.apply(context.Background(), Batch{Deletes: []string{"a.py"}}, nil)
	_, err = store.Node("a.py")
	assert.ErrorIs(t, err, graphstore.ErrUnknownFile)
}

func TestApplier_UnknownExtensionIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	store := graphstore.New()
	a := &Applier{Store: store, Pool: NewPool(dir, newRegistry(), 2)}
	a.apply(context.Background(), Batch{Creates: []string{"notes.txt"}}, nil)

	_, err := store.Node("notes.txt")
	assert.ErrorIs(t, err, graphstore.ErrUnknownFile)
}
