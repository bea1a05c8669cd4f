// Package config loads the daemon's TOML configuration file and applies
// environment overrides, following the teacher's config.go shape
// (go-toml decode into a struct) with caarlos0/env layered on top for
// container-style deployments.
package config

import (
	"fmt"
	"os"

	smqerrors "github.com/absmach/supermq/pkg/errors"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
)

var (
	errReadConfig  = smqerrors.New("failed to read config file")
	errParseConfig = smqerrors.New("failed to parse config file")
	errEnvOverride = smqerrors.New("failed to apply environment overrides")
)

// ReportSinkKind selects where completed-task results are reported.
type ReportSinkKind string

const (
	ReportStdout ReportSinkKind = "stdout"
	ReportMQTT   ReportSinkKind = "mqtt"
	ReportBoth   ReportSinkKind = "both"
)

// MQTTConfig mirrors pkg/mqttpub.Options' shape so the TOML table maps
// onto it field for field.
type MQTTConfig struct {
	BrokerURL string `toml:"broker_url" env:"SCHEDRT_MQTT_BROKER_URL"`
	ClientID  string `toml:"client_id" env:"SCHEDRT_MQTT_CLIENT_ID"`
	Topic     string `toml:"topic" env:"SCHEDRT_MQTT_TOPIC"`
	CAPath    string `toml:"ca_path" env:"SCHEDRT_MQTT_CA_PATH"`
	CertPath  string `toml:"cert_path" env:"SCHEDRT_MQTT_CERT_PATH"`
	KeyPath   string `toml:"key_path" env:"SCHEDRT_MQTT_KEY_PATH"`
}

// AppEntry is one row of the `[[apps]]` table.
type AppEntry struct {
	App           string `toml:"app"`
	BitstreamPath string `toml:"bitstream_path"`
	KernelName    string `toml:"kernel_name"`
	Kind          string `toml:"kind"`
}

// ProviderEntry is one row of the `[[providers]]` table.
type ProviderEntry struct {
	Op         string `toml:"op"`
	Kind       string `toml:"kind"`
	InstanceID uint   `toml:"instance_id"`
	Priority   int    `toml:"priority"`
}

// Config is the daemon's full configuration surface.
type Config struct {
	BackendMode      string `toml:"backend_mode" env:"SCHEDRT_BACKEND_MODE"`
	CpuWorkers       int    `toml:"cpu_workers" env:"SCHEDRT_CPU_WORKERS"`
	PreloadThreshold int    `toml:"preload_threshold" env:"SCHEDRT_PRELOAD_THRESHOLD"`
	CsvReport        bool   `toml:"csv_report" env:"SCHEDRT_CSV_REPORT"`
	FpgaMock         bool   `toml:"fpga_mock" env:"SCHEDRT_FPGA_MOCK"`
	DebugLogging     bool   `toml:"debug_logging" env:"SCHEDRT_DEBUG_LOGGING"`

	ReportSink ReportSinkKind `toml:"report_sink" env:"SCHEDRT_REPORT_SINK"`
	MQTT       MQTTConfig     `toml:"mqtt"`
	HTTPAddr   string         `toml:"http_addr" env:"SCHEDRT_HTTP_ADDR"`

	Apps      []AppEntry      `toml:"apps"`
	Providers []ProviderEntry `toml:"providers"`
}

// defaults mirror the ones named in spec.md §6.5: 4 CPU workers, preload
// disabled, stdout reporting.
func defaults() Config {
	return Config{
		BackendMode: "auto",
		CpuWorkers:  4,
		ReportSink:  ReportStdout,
	}
}

// LoadConfig reads path, decodes it over the defaults, then applies any
// matching environment variables. A malformed TOML file or an app/provider
// entry with an empty name is a startup-time error — error kind 7 in
// spec.md §7, distinct from an unknown app discovered at run time.
func LoadConfig(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, smqerrors.Wrap(errReadConfig, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, smqerrors.Wrap(errParseConfig, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, smqerrors.Wrap(errEnvOverride, err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	for _, a := range cfg.Apps {
		if a.App == "" {
			return fmt.Errorf("config: app entry with empty name")
		}
	}
	for _, p := range cfg.Providers {
		if p.Op == "" {
			return fmt.Errorf("config: provider entry with empty op")
		}
	}
	return nil
}
