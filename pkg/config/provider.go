package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Server    ServerData    `json:"server" yaml:"server" mapstructure:"server"`
	Analysis  AnalysisData  `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Datasets  DatasetData   `json:"datasets" yaml:"datasets" mapstructure:"datasets"`
	Telemetry TelemetryData `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
	Debug     bool          `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// ServerData holds the HTTP front-end settings
type ServerData struct {
	ListenAddr     string        `json:"listen_addr" yaml:"listen_addr" mapstructure:"listen_addr"`
	Port           int           `json:"port" yaml:"port" mapstructure:"port"`
	Cert           string        `json:"cert,omitempty" yaml:"cert,omitempty" mapstructure:"cert"`
	Key            string        `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	MaxUploadBytes int64         `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	EnableCORS     bool          `json:"enable_cors" yaml:"enable_cors" mapstructure:"enable_cors"`
	// RateLimit is the sustained requests per second allowed per client on
	// the upload and analyze endpoints; 0 disables limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`
}

// AnalysisData holds detector and fitting settings
type AnalysisData struct {
	Algorithm       string  `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	Cost            string  `json:"cost" yaml:"cost" mapstructure:"cost"`
	MinSize         int     `json:"min_size" yaml:"min_size" mapstructure:"min_size"`
	Jump            int     `json:"jump" yaml:"jump" mapstructure:"jump"`
	Penalty         float64 `json:"penalty" yaml:"penalty" mapstructure:"penalty"`
	SmoothingWindow int     `json:"smoothing_window" yaml:"smoothing_window" mapstructure:"smoothing_window"`
	Axis            string  `json:"axis" yaml:"axis" mapstructure:"axis"`
	FitWorkers      int     `json:"fit_workers" yaml:"fit_workers" mapstructure:"fit_workers"`

	DefaultBreaks    int `json:"default_breaks" yaml:"default_breaks" mapstructure:"default_breaks"`
	DefaultStartYear int `json:"default_start_year" yaml:"default_start_year" mapstructure:"default_start_year"`
	DefaultEndYear   int `json:"default_end_year" yaml:"default_end_year" mapstructure:"default_end_year"`
}

// DatasetData controls how long uploads are kept
type DatasetData struct {
	TTL             time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	PreviewRows     int           `json:"preview_rows" yaml:"preview_rows" mapstructure:"preview_rows"`
}

// TelemetryData enables metrics and tracing
type TelemetryData struct {
	Metrics       bool    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Tracing       bool    `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	TraceExporter string  `json:"trace_exporter" yaml:"trace_exporter" mapstructure:"trace_exporter"`
	SampleRatio   float64 `json:"sample_ratio" yaml:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *ConfigData {
	return &ConfigData{
		Server: ServerData{
			ListenAddr:     "0.0.0.0",
			Port:           8080,
			MaxUploadBytes: 32 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			EnableCORS:     false,
			RateLimit:      5,
			RateBurst:      10,
		},
		Analysis: AnalysisData{
			Algorithm:        "binseg",
			Cost:             "l2",
			MinSize:          2,
			Jump:             5,
			SmoothingWindow:  1,
			Axis:             "local",
			FitWorkers:       4,
			DefaultBreaks:    4,
			DefaultStartYear: 1995,
			DefaultEndYear:   2022,
		},
		Datasets: DatasetData{
			TTL:             30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			PreviewRows:     5,
		},
		Telemetry: TelemetryData{
			Metrics:       true,
			Tracing:       false,
			TraceExporter: "stdout",
			SampleRatio:   1,
		},
	}
}
