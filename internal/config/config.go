package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/fire-weather-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Scenario and dry-windy calibration applied to every grid request.
	Scenario    domain.Scenario
	Calibration domain.Calibration
}

// calibrationFile is the layout of the optional CALIBRATION_FILE.
type calibrationFile struct {
	GWL string `yaml:"gwl"`
	DWI struct {
		A *float64 `yaml:"a"`
		B *float64 `yaml:"b"`
		C *float64 `yaml:"c"`
		D *float64 `yaml:"d"`
	} `yaml:"dwi"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	scenario, cal, err := loadScenario()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "fire-weather-grids"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "fire-weather-indices"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "fire-weather-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Scenario:    scenario,
		Calibration: cal,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// loadScenario resolves the global warming level and calibration constants.
// CALIBRATION_FILE supplies base values; GWL and DWI_A..DWI_D override them.
func loadScenario() (domain.Scenario, domain.Calibration, error) {
	var file calibrationFile
	if path := os.Getenv("CALIBRATION_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Scenario{}, domain.Calibration{}, fmt.Errorf("read CALIBRATION_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return domain.Scenario{}, domain.Calibration{}, fmt.Errorf("parse CALIBRATION_FILE: %w", err)
		}
	}

	gwl := strings.TrimSpace(sharedcfg.EnvOrDefault("GWL", file.GWL))
	if gwl == "" {
		return domain.Scenario{}, domain.Calibration{}, errors.New("GWL is required")
	}

	var cal domain.Calibration
	consts := []struct {
		env  string
		file *float64
		dst  *float64
	}{
		{"DWI_A", file.DWI.A, &cal.A},
		{"DWI_B", file.DWI.B, &cal.B},
		{"DWI_C", file.DWI.C, &cal.C},
		{"DWI_D", file.DWI.D, &cal.D},
	}
	for _, c := range consts {
		v, err := parseConstant(c.env, c.file)
		if err != nil {
			return domain.Scenario{}, domain.Calibration{}, err
		}
		*c.dst = v
	}

	return domain.Scenario{GWL: gwl}, cal, nil
}

func parseConstant(env string, fallback *float64) (float64, error) {
	s := os.Getenv(env)
	if s == "" {
		if fallback == nil {
			return 0, fmt.Errorf("%s is required", env)
		}
		return *fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	return v, nil
}
