package config

// Config is the full configuration surface read by the binaries.
type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SessionConfig
	BackendConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
	GetDevUserEmail() string
	GetDevUserPassword() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Session
	Backend
	Storage
}

func New() Config {
	return mainConfig{}
}
