package telemetry

type Config struct {
	// Use OTLP exporter. Has precedence over the Jaeger configuration.
	OTLP OTLP `yaml:"otlp"`
	// The URL of the Jaeger collector, if Jaeger is used.
	JaegerURL string `yaml:"jaegerUrl"`
}

type OTLP struct {
	// The endpoint of the OTLP collector, host and port without a URL path.
	Host string `yaml:"host"`
	// Secure indicates whether to use TLS when connecting to the endpoint.
	Secure bool `yaml:"secure"`
}

// Enabled reports whether any exporter is configured.
func (c Config) Enabled() bool {
	return c.OTLP.Host != "" || c.JaegerURL != ""
}
