package cookie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func TestLoadOrder(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	loader := Loader{HomeDir: home, WorkDir: work, Getenv: noEnv}

	_, _, err := loader.Load()
	require.ErrorIs(t, err, ErrNotFound)

	write(t, filepath.Join(work, "auth_cookie"), "work-cookie\n")
	cookie, source, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "work-cookie", cookie)
	require.Equal(t, filepath.Join(work, "auth_cookie"), source)

	write(t, filepath.Join(home, ".leper", "auth_cookie"), "  home-cookie  ")
	cookie, _, err = loader.Load()
	require.NoError(t, err)
	require.Equal(t, "home-cookie", cookie)

	write(t, filepath.Join(work, ".env"), EnvVar+"=dotenv-cookie\n")
	cookie, source, err = loader.Load()
	require.NoError(t, err)
	require.Equal(t, "dotenv-cookie", cookie)
	require.Equal(t, "$"+EnvVar, source)

	loader.Getenv = func(key string) string {
		if key == EnvVar {
			return "env-cookie"
		}
		return ""
	}
	cookie, _, err = loader.Load()
	require.NoError(t, err)
	require.Equal(t, "env-cookie", cookie)
}

func TestLoadExplicitPath(t *testing.T) {
	work := t.TempDir()
	write(t, filepath.Join(work, "auth_cookie"), "work-cookie")
	env := func(string) string { return "env-cookie" }

	explicit := filepath.Join(t.TempDir(), "mine")
	loader := Loader{Path: explicit, WorkDir: work, Getenv: env}

	// an explicit path that does not exist does not fall back to anything else
	_, _, err := loader.Load()
	require.ErrorIs(t, err, ErrNotFound)

	write(t, explicit, "explicit-cookie\n")
	cookie, source, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "explicit-cookie", cookie)
	require.Equal(t, explicit, source)
}

func TestLoadSkipsEmptyFiles(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	write(t, filepath.Join(home, ".leper", "auth_cookie"), "\n\n")
	write(t, filepath.Join(work, "auth_cookie"), "work-cookie")

	cookie, _, err := Loader{HomeDir: home, WorkDir: work, Getenv: noEnv}.Load()
	require.NoError(t, err)
	require.Equal(t, "work-cookie", cookie)
}

func TestFiles(t *testing.T) {
	require.Equal(t, []string{"x"}, Loader{Path: "x", HomeDir: "/home/u", WorkDir: "."}.Files())
	require.Equal(
		t,
		[]string{filepath.Join("/home/u", ".leper", "auth_cookie"), "auth_cookie"},
		Loader{HomeDir: "/home/u", WorkDir: "."}.Files(),
	)
}
