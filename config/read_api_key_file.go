package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxAPIKeyFileBytes bounds how much of an api_key_file is read.
const MaxAPIKeyFileBytes = 4 * 1024

// ReadAPIKeyFile returns the trimmed contents of a small regular file.
func ReadAPIKeyFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open api key file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat api key file: %w", err)
	}
	if !st.Mode().IsRegular() {
		return "", errors.New("api key file must be a regular file")
	}

	b, err := io.ReadAll(io.LimitReader(f, MaxAPIKeyFileBytes+1))
	if err != nil {
		return "", fmt.Errorf("read api key file: %w", err)
	}
	if len(b) > MaxAPIKeyFileBytes {
		return "", fmt.Errorf("api key file too large (max %d bytes)", MaxAPIKeyFileBytes)
	}

	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", errors.New("api key file is empty")
	}
	return key, nil
}
