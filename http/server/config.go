package server

import (
	"fmt"
	"time"
)

// Config defines the status server options.
type Config struct {
	// Disable turns the status server off.
	Disable bool `yaml:"disable"`

	// Host address to bind to.
	Host string `yaml:"host" default:"127.0.0.1"`

	// Port to listen on.
	Port int `yaml:"port" validate:"gte=0,lte=65535" default:"8089"`

	// HideErrorDetails omits trace and details from error responses.
	HideErrorDetails bool `yaml:"hide_error_details"`

	ReadTimeout  time.Duration `yaml:"read_timeout"  default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  default:"120s"`
}

// Address returns the listen address in the form "host:port".
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
