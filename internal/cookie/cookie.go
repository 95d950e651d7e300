package cookie

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvVar holds the cookie itself, not a path to it.
const EnvVar = "KARMAGRAB_COOKIE"

var ErrNotFound = errors.New("cookie file not found")

// Loader finds the session cookie. The first source that yields a non-empty
// value wins, in this order:
// 1. the explicit Path (if set, nothing else is consulted)
// 2. the EnvVar environment variable, then the same variable in <WorkDir>/.env
// 3. <HomeDir>/.leper/auth_cookie
// 4. <WorkDir>/auth_cookie
type Loader struct {
	Path    string
	HomeDir string
	WorkDir string
	Getenv  func(string) string
}

// NewLoader returns a loader for the current user and working directory.
func NewLoader(path string) Loader {
	home, _ := os.UserHomeDir()
	return Loader{
		Path:    path,
		HomeDir: home,
		WorkDir: ".",
		Getenv:  os.Getenv,
	}
}

// Files lists the cookie files that are tried, in order.
func (l Loader) Files() []string {
	if l.Path != "" {
		return []string{l.Path}
	}
	var out []string
	if l.HomeDir != "" {
		out = append(out, filepath.Join(l.HomeDir, ".leper", "auth_cookie"))
	}
	return append(out, filepath.Join(l.WorkDir, "auth_cookie"))
}

func (l Loader) fromEnv() (string, error) {
	if l.Getenv != nil {
		if value := strings.TrimSpace(l.Getenv(EnvVar)); value != "" {
			return value, nil
		}
	}
	env, err := godotenv.Read(filepath.Join(l.WorkDir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read .env: %w", err)
	}
	return strings.TrimSpace(env[EnvVar]), nil
}

// Load returns the cookie and a description of where it was found.
func (l Loader) Load() (cookie string, source string, err error) {
	if l.Path == "" {
		cookie, err = l.fromEnv()
		if err != nil {
			return "", "", err
		}
		if cookie != "" {
			return cookie, "$" + EnvVar, nil
		}
	}

	for _, path := range l.Files() {
		contents, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("read cookie %s: %w", path, err)
		}
		cookie = strings.TrimSpace(string(contents))
		if cookie != "" {
			return cookie, path, nil
		}
	}
	return "", "", ErrNotFound
}
