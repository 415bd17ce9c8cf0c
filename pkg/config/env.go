package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/toyz/synapse/internal/errors"
)

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped and
// reported through the returned list of files that were actually loaded.
func LoadEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return loaded, errors.WrapFileSystemError("stat", file, err)
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, errors.WrapConfigurationError(file, "load", err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// Env returns an environment variable, falling back to def when unset or empty
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvBool returns a bool environment variable
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
