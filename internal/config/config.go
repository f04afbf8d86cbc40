package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type ClientConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetChatPollInterval() time.Duration
	GetCredentialsFile() string
	GetCredentialsPassphrase() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
