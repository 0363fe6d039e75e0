package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qr")
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.False(t, s.Exists("123456"))
	require.NoError(t, s.WriteJoinLink("123456", "http://localhost:5000/123456/join"))
	require.True(t, s.Exists("123456"))

	data, err := os.ReadFile(s.Path("123456"))
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG"), data[:4])

	require.NoError(t, s.Remove("123456"))
	require.False(t, s.Exists("123456"))
	require.NoError(t, s.Remove("123456"))
}

func TestPathStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "passwd.png"), s.Path("../../etc/passwd"))
}
