package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STRUCTBREAK_SERVER_PORT.
const EnvPrefix = "STRUCTBREAK"

// ViperProvider layers defaults, an optional YAML file and STRUCTBREAK_*
// environment variables, in increasing priority.
type ViperProvider struct {
	filename string
	v        *viper.Viper
}

// NewViperProvider creates a provider. filename may be empty, in which case
// structbreak.yaml is looked up in the working directory and in
// $HOME/.structbreak.
func NewViperProvider(filename string) *ViperProvider {
	return &ViperProvider{filename: filename, v: viper.New()}
}

// Viper exposes the underlying instance so that command-line flags can be
// bound to configuration keys.
func (p *ViperProvider) Viper() *viper.Viper {
	return p.v
}

// LoadConfig reads the configuration and validates it.
func (p *ViperProvider) LoadConfig() (*ConfigData, error) {
	v := p.v
	setDefaults(v, DefaultConfig())

	if p.filename != "" {
		v.SetConfigFile(p.filename)
	} else {
		v.SetConfigName("structbreak")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.structbreak")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if p.filename != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	config := &ConfigData{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ConfigFileUsed returns the file that was read, if any.
func (p *ViperProvider) ConfigFileUsed() string {
	return p.v.ConfigFileUsed()
}

// IsReadOnly returns true; configuration is never written back.
func (p *ViperProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for the viper provider
func (p *ViperProvider) Close() error {
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// that are absent from the file.
func setDefaults(v *viper.Viper, d *ConfigData) {
	v.SetDefault("debug", d.Debug)

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cert", d.Server.Cert)
	v.SetDefault("server.key", d.Server.Key)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.enable_cors", d.Server.EnableCORS)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)

	v.SetDefault("analysis.algorithm", d.Analysis.Algorithm)
	v.SetDefault("analysis.cost", d.Analysis.Cost)
	v.SetDefault("analysis.min_size", d.Analysis.MinSize)
	v.SetDefault("analysis.jump", d.Analysis.Jump)
	v.SetDefault("analysis.penalty", d.Analysis.Penalty)
	v.SetDefault("analysis.smoothing_window", d.Analysis.SmoothingWindow)
	v.SetDefault("analysis.axis", d.Analysis.Axis)
	v.SetDefault("analysis.fit_workers", d.Analysis.FitWorkers)
	v.SetDefault("analysis.default_breaks", d.Analysis.DefaultBreaks)
	v.SetDefault("analysis.default_start_year", d.Analysis.DefaultStartYear)
	v.SetDefault("analysis.default_end_year", d.Analysis.DefaultEndYear)

	v.SetDefault("datasets.ttl", d.Datasets.TTL)
	v.SetDefault("datasets.cleanup_interval", d.Datasets.CleanupInterval)
	v.SetDefault("datasets.preview_rows", d.Datasets.PreviewRows)

	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.tracing", d.Telemetry.Tracing)
	v.SetDefault("telemetry.trace_exporter", d.Telemetry.TraceExporter)
	v.SetDefault("telemetry.sample_ratio", d.Telemetry.SampleRatio)
}

// LoadEnvFile loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}
