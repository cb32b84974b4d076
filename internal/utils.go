package internal

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	ConfigHomeEnv     = "MINEBOT_CONFIG_HOME"
	DataHomeEnv       = "MINEBOT_DATA_HOME"
	DefaultConfigDir  = ".minebot"
	DefaultDataDir    = "data"
	SlugPostfixLength = 4
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func GenerateUniqueSlug(prefix string) string {
	guid := uuid.New()
	return prefix + guid.String()[:SlugPostfixLength]
}

// Slugify lowercases s and collapses every run of non-alphanumerics into a
// single underscore. The result is capped at 40 characters.
func Slugify(s string) string {
	out := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
	if len(out) > 40 {
		out = strings.TrimRight(out[:40], "_")
	}
	return out
}

func GetConfigHome() (string, error) {
	var result string

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	result = filepath.Join(homeDir, DefaultConfigDir)

	if tmp := os.Getenv(ConfigHomeEnv); tmp != "" {
		result = tmp
	}

	return result, nil
}

func GetDataHome() (string, error) {
	var result string

	configHome, err := GetConfigHome()
	if err != nil {
		return "", err
	}

	result = filepath.Join(configHome, DefaultDataDir)

	if tmp := os.Getenv(DataHomeEnv); tmp != "" {
		result = tmp
	}

	return result, nil
}
