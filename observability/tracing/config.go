package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	shutdownTimeout    = 5 * time.Second
	instrumentationLib = "github.com/rise-and-shine/dropsync"
)

// Config holds the tracing configuration.
type Config struct {
	// Disable installs a no-op provider.
	Disable bool `yaml:"disable"`

	// SampleRate is the fraction of root spans to sample, 0.0 to 1.0.
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1" default:"1"`

	// ExporterHost is the OTLP gRPC collector host.
	ExporterHost string `yaml:"exporter_host" validate:"required_unless=Disable true"`

	// ExporterPort is the OTLP gRPC collector port.
	ExporterPort int `yaml:"exporter_port" validate:"required_unless=Disable true"`

	// Tags are added as resource attributes to every span.
	Tags map[string]string `yaml:"tags"`
}
