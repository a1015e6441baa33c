package config

import "fmt"

// ServerConfig holds HTTP serve mode settings.
type ServerConfig struct {
	// Host is the bind address. 127.0.0.1 by default; set 0.0.0.0 behind a
	// reverse proxy.
	Host string `mapstructure:"host" json:"host"`
	// Port is the listen port.
	Port int `mapstructure:"port" json:"port"`
	// CORSOrigins are the allowed browser origins.
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	// TrustProxy trusts X-Real-IP/X-Forwarded-For headers. Set true only
	// behind a reverse proxy.
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`
	// RateBurst is the per-IP rate limit burst. 0 uses the API default.
	RateBurst int `mapstructure:"rate_burst" json:"rate_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TracingConfig holds OTLP trace export settings. Tracing is disabled while
// Endpoint is empty.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName tags exported spans.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Environment is the deployment environment tag.
	Environment string `mapstructure:"environment" json:"environment"`
}

// Enabled reports whether traces should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}
