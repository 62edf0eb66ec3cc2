package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatcher_IgnoredDirMatchesDefaultPatterns(t *testing.T) {
	w := &Watcher{ignores: DefaultIgnorePatterns}
	assert.True(t, w.ignoredDir("node_modules"))
	assert.True(t, w.ignoredDir(".git"))
	assert.True(t, w.ignoredDir(".graph"))
	assert.False(t, w.ignoredDir("src"))
}

func TestWatcher_IgnoredNestedNodeModules(t *testing.T) {
	w := &Watcher{ignores: DefaultIgnorePatterns}
	assert.True(t, w.ignored("pkg/node_modules/foo/index.js"))
	assert.False(t, w.ignored("pkg/src/index.js"))
}
