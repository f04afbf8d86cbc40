package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appNameVar        = "APP_NAME"
	baseURLVar        = "JAMSESH_API_URL"
	httpTimeoutVar    = "JAMSESH_HTTP_TIMEOUT"
	chatPollVar       = "JAMSESH_CHAT_POLL_INTERVAL"
	credentialsVar    = "JAMSESH_CREDENTIALS_FILE"
	passphraseVar     = "JAMSESH_CREDENTIALS_PASSPHRASE"
	defaultAppName    = "Jamsesh"
	defaultBaseURL    = "http://localhost:8000/api"
	defaultPassphrase = "jamsesh-dev-only"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ ClientConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the base URL of the Jamsesh backend API, including the
// /api prefix (e.g. "https://api.jamsesh.app/api").
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, defaultBaseURL)
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	return getDuration(httpTimeoutVar, 15*time.Second)
}

func (EnvVars) GetChatPollInterval() time.Duration {
	return getDuration(chatPollVar, 3*time.Second)
}

func (EnvVars) GetCredentialsFile() string {
	if v := os.Getenv(credentialsVar); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jamsesh/credentials.enc"
	}
	return filepath.Join(home, ".jamsesh", "credentials.enc")
}

// GetCredentialsPassphrase returns the passphrase protecting the on-disk
// credential store. The default exists so local development works out of the
// box; deployments are expected to set JAMSESH_CREDENTIALS_PASSPHRASE.
func (EnvVars) GetCredentialsPassphrase() string {
	return GetEnv(passphraseVar, defaultPassphrase)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
