package config

import "time"

// ServerConfig holds the intelligence HTTP API server configuration
type ServerConfig struct {
	// Host to bind the API server
	Host string `mapstructure:"host"`

	// Port for the API server
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// Request read timeout
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// Response write timeout
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}
