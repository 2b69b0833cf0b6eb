// Package secrets resolves API keys from files, inline values or the environment.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when no source yields a value.
var ErrNotConfigured = errors.New("secret is not configured")

// lookupEnv is a package-level var to allow test injection.
var lookupEnv = os.LookupEnv

// Source describes where a secret may come from, in order of precedence:
// File, Value, then each variable in Env.
type Source struct {
	// Name is used in error messages.
	Name  string
	Value string
	File  string
	Env   []string
}

// Load returns the trimmed secret. A configured but unreadable or empty file
// is an error rather than a reason to look further.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	for _, key := range src.Env {
		if value, ok := lookupEnv(key); ok {
			if secret := strings.TrimSpace(value); secret != "" {
				return secret, nil
			}
		}
	}

	return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
}
