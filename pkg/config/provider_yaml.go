package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig reads the file over DefaultConfig, so omitted keys keep their
// defaults, and validates the result.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return ParseYAML(cfgFile)
}

// ParseYAML decodes a YAML document over DefaultConfig.
func ParseYAML(data []byte) (*ConfigData, error) {
	config := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// SampleYAML is written by "structbreak config init". It lists every key
// with its default value.
const SampleYAML = `# structbreak configuration
debug: false

server:
  listen_addr: 0.0.0.0
  port: 8080
  # cert: /etc/structbreak/tls.crt
  # key: /etc/structbreak/tls.key
  max_upload_bytes: 33554432
  read_timeout: 30s
  write_timeout: 60s
  enable_cors: false
  # requests per second per client on upload/analyze; 0 disables
  rate_limit: 5
  rate_burst: 10

analysis:
  # binseg, dynp or pelt
  algorithm: binseg
  # l2 or rbf
  cost: l2
  min_size: 2
  jump: 5
  # pelt only; 0 searches for a penalty matching the breakpoint count
  penalty: 0
  # odd median pre-filter width; 1 disables
  smoothing_window: 1
  # local restarts the regression year axis for every segment; global uses calendar years
  axis: local
  fit_workers: 4
  default_breaks: 4
  default_start_year: 1995
  default_end_year: 2022

datasets:
  ttl: 30m
  cleanup_interval: 5m
  preview_rows: 5

telemetry:
  metrics: true
  tracing: false
  trace_exporter: stdout
  sample_ratio: 1
`
