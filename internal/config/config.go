package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the metric computation settings.
type EngineConfig struct {
	WindowSizeS        float64 `yaml:"window_size_s"`
	RecordCap          int     `yaml:"record_cap"`
	DedupToleranceMs   int     `yaml:"dedup_tolerance_ms"`
	ConnectionTimeoutS float64 `yaml:"connection_timeout_s"`
	MatchWindowS       float64 `yaml:"match_window_s"`
	TopN               int     `yaml:"top_n"`
	NumWorkers         int     `yaml:"num_workers"`
}

// BaselineConfig holds the baseline profile location.
type BaselineConfig struct {
	Dir string `yaml:"dir"`
}

// MLConfig holds the model registry settings.
type MLConfig struct {
	ModelDir      string  `yaml:"model_dir"`
	Contamination float64 `yaml:"contamination"`
	SampleRate    float64 `yaml:"sample_rate"`
	Strategy      string  `yaml:"strategy"`
}

// JSONLConfig configures the line-delimited JSON writer.
type JSONLConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ClickHouseConfig holds the connection settings for the ClickHouse writer.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WritersConfig selects where computed windows and detections go.
type WritersConfig struct {
	JSONL      JSONLConfig      `yaml:"jsonl"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ProbeConfig holds the NATS transport settings for remote record feeds.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the HTTP service settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// SMTPConfig holds the mail relay settings for alert notifications.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"` // comma-separated recipients
}

// AlerterConfig controls the periodic alert evaluation.
type AlerterConfig struct {
	Enabled       bool       `yaml:"enabled"`
	CheckInterval string     `yaml:"check_interval"`
	MinSeverity   string     `yaml:"min_severity"`
	SMTP          SMTPConfig `yaml:"smtp"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Baseline BaselineConfig `yaml:"baseline"`
	ML       MLConfig       `yaml:"ml"`
	Writers  WritersConfig  `yaml:"writers"`
	Probe    ProbeConfig    `yaml:"probe"`
	API      APIConfig      `yaml:"api"`
	Alerter  AlerterConfig  `yaml:"alerter"`
}

// Default returns a Config with working values for every section.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			WindowSizeS:        10,
			RecordCap:          100000,
			DedupToleranceMs:   1,
			ConnectionTimeoutS: 120,
			MatchWindowS:       5,
			TopN:               10,
			NumWorkers:         4,
		},
		Baseline: BaselineConfig{Dir: "output/baselines"},
		ML: MLConfig{
			ModelDir:      "output/models",
			Contamination: 0.1,
		},
		Writers: WritersConfig{
			JSONL: JSONLConfig{Enabled: true, Dir: "output/results"},
			ClickHouse: ClickHouseConfig{
				Host:     "localhost",
				Port:     9000,
				Database: "default",
				Username: "default",
			},
		},
		Probe: ProbeConfig{
			NATSURL: "nats://localhost:4222",
			Subject: "netmetrica.records",
		},
		API: APIConfig{ListenAddr: ":8080"},
		Alerter: AlerterConfig{
			CheckInterval: "1m",
			MinSeverity:   "high",
		},
	}
}

// LoadConfig reads the configuration from a YAML file. Sections absent from
// the file keep their defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.WindowSizeS <= 0 {
		return fmt.Errorf("engine.window_size_s must be positive, got %g", c.Engine.WindowSizeS)
	}
	if c.Engine.RecordCap <= 0 {
		return fmt.Errorf("engine.record_cap must be positive, got %d", c.Engine.RecordCap)
	}
	if c.Engine.NumWorkers <= 0 {
		return fmt.Errorf("engine.num_workers must be positive, got %d", c.Engine.NumWorkers)
	}
	if c.ML.Contamination <= 0 || c.ML.Contamination >= 1 {
		return fmt.Errorf("ml.contamination must be in (0, 1), got %g", c.ML.Contamination)
	}
	if c.ML.SampleRate < 0 || c.ML.SampleRate > 1 {
		return fmt.Errorf("ml.sample_rate must be in [0, 1], got %g", c.ML.SampleRate)
	}
	if c.Writers.ClickHouse.Enabled {
		if c.Writers.ClickHouse.Host == "" || c.Writers.ClickHouse.Port == 0 {
			return fmt.Errorf("writers.clickhouse requires host and port when enabled")
		}
	}
	return nil
}
