package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvLoader loads a .env file from the current or an ancestor directory.
type EnvLoader struct {
	loaded bool
	path   string
}

// NewEnvLoader creates an environment loader.
func NewEnvLoader() *EnvLoader {
	return &EnvLoader{}
}

// Load loads the .env file nearest the working directory, if any exists.
// Absence of a .env file is not an error: lidx has no required secrets.
func (e *EnvLoader) Load() error {
	if e.loaded {
		return nil
	}

	envPath, err := findEnvFile()
	if err != nil {
		return nil
	}

	e.path = envPath
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	e.loaded = true
	return nil
}

// GetPath returns the path to the loaded .env file, or "" if none was loaded.
func (e *EnvLoader) GetPath() string {
	return e.path
}

// findEnvFile searches the working directory and up to 5 ancestor directories.
func findEnvFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	searchPath := cwd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(searchPath, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}

		parent := filepath.Dir(searchPath)
		if parent == searchPath {
			break
		}
		searchPath = parent
	}

	return "", fmt.Errorf(".env file not found in %s or parent directories", cwd)
}

// GetString returns the environment variable's value or a default.
func GetString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetInt returns the environment variable's integer value or a default.
func GetInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// GetBool returns the environment variable's boolean value or a default.
func GetBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
