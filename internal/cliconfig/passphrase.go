package cliconfig

import (
	"fmt"
	"os"
	"strings"
)

// ReadPassphrase reads the credential passphrase from a file. Surrounding
// whitespace is trimmed. Files readable by group or others are rejected.
func ReadPassphrase(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("read passphrase: %s is accessible by other users (mode %04o)", path, info.Mode().Perm())
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	p := strings.TrimSpace(string(b))
	if p == "" {
		return "", fmt.Errorf("read passphrase: %s is empty", path)
	}
	return p, nil
}
