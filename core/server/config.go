package server

import "time"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Enabled exposes the HTTP API. The refresh loop runs either way.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// ShutdownSeconds bounds the graceful shutdown of the HTTP server.
	ShutdownSeconds int `mapstructure:"shutdown_seconds" default:"5"`
}

// Address returns the listen address for the configured port.
func (c Config) Address() string {
	return ":" + c.Port
}

// ShutdownTimeout returns the graceful shutdown budget, defaulting to five seconds.
func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ShutdownSeconds) * time.Second
}
