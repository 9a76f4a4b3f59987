package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ResolveAPIKey resolves an API key based on the given source.
// Supported sources: "env" (from environment variable), "config" (from config value),
// "keyring" (currently falls back to env), "none" (no key, for local servers).
func ResolveAPIKey(source, configValue, envVar string) (string, error) {
	switch source {
	case "keyring":
		return resolveFromEnv(envVar)
	case "env":
		return resolveFromEnv(envVar)
	case "config":
		if configValue == "" {
			return "", fmt.Errorf("api_key_source is 'config' but no api_key value provided")
		}
		return configValue, nil
	case "none":
		return "", nil
	default:
		return "", fmt.Errorf("unknown api_key_source: %q", source)
	}
}

func resolveFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", fmt.Errorf("no environment variable name specified")
	}
	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	}
	return val, nil
}

// RepositoryToken returns the access token for a hosting provider
// ("github", "gitlab" or "bitbucket"). Tokens are optional: an unset
// variable yields an empty token and no error.
func (c *Config) RepositoryToken(host string) (string, error) {
	var tc TokenConfig
	var envVar string
	switch host {
	case "github":
		tc, envVar = c.Repository.GitHub, "GITHUB_TOKEN"
	case "gitlab":
		tc, envVar = c.Repository.GitLab, "GITLAB_TOKEN"
	case "bitbucket":
		tc, envVar = c.Repository.Bitbucket, "BITBUCKET_TOKEN"
	default:
		return "", nil
	}
	switch tc.TokenSource {
	case "", "env", "keyring":
		return os.Getenv(envVar), nil
	}
	return ResolveAPIKey(tc.TokenSource, tc.Token, envVar)
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables that are already set. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
