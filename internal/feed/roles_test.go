package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRoles_KnownAndFallback(t *testing.T) {
	roles := BuiltinRoles()
	assert.Equal(t, "👑", roles.Emoji("queen"))
	assert.Equal(t, "👑", roles.Emoji("QUEEN"), "lookups are case-insensitive")
	assert.Equal(t, "🤖", roles.Emoji("mystery-agent"))

	_, _, ok := roles.Position("developer")
	assert.True(t, ok)
	_, _, ok = roles.Position("mystery-agent")
	assert.False(t, ok)
}

func TestLoadRoles_MergesOverBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	data := `
roles:
  queen:
    emoji: "🐝"
  scribe:
    emoji: "📝"
    x: 0.1
    y: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	roles, err := LoadRoles(path)
	require.NoError(t, err)

	// Overridden emoji, but the builtin pinned position survives.
	assert.Equal(t, "🐝", roles.Emoji("queen"))
	x, y, ok := roles.Position("queen")
	require.True(t, ok)
	assert.Greater(t, x, 0.0)
	assert.Greater(t, y, 0.0)

	// Brand new role with its own slot.
	assert.Equal(t, "📝", roles.Emoji("scribe"))
	x, y, ok = roles.Position("scribe")
	require.True(t, ok)
	assert.InDelta(t, 0.1, x, 1e-9)
	assert.InDelta(t, 0.9, y, 1e-9)

	// Everything else untouched.
	assert.Equal(t, "💻", roles.Emoji("developer"))
}

func TestLoadRoles_EmptyPathUsesBuiltins(t *testing.T) {
	roles, err := LoadRoles("")
	require.NoError(t, err)
	assert.Equal(t, "🧪", roles.Emoji("tester"))
}

func TestLoadRoles_BadFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles: [not a map"), 0o644))
	_, err := LoadRoles(path)
	assert.Error(t, err)
}
