// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lexscan/internal/paths"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Logging struct {
		Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error off disabled"`
		Pretty     bool   `yaml:"pretty"`
		WithCaller bool   `yaml:"with_caller"`
	} `yaml:"logging"`

	Analysis struct {
		EnableOCR       bool   `yaml:"enable_ocr"`
		Analyzer        string `yaml:"analyzer" validate:"required"`
		AnalysisVersion string `yaml:"analysis_version" validate:"required"`
	} `yaml:"analysis"`

	// Patterns points at an optional YAML pattern table
	Patterns struct {
		File   string `yaml:"file"`
		Extend bool   `yaml:"extend"`
	} `yaml:"patterns"`

	Compliance struct {
		Families []ComplianceFamily `yaml:"families" validate:"dive"`
	} `yaml:"compliance"`

	Versioning struct {
		MaxVersionsPerDocument int `yaml:"max_versions_per_document" validate:"gte=1"`
	} `yaml:"versioning"`

	OCR struct {
		Endpoint   string        `yaml:"endpoint" validate:"omitempty,url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	} `yaml:"ocr"`

	EntityService struct {
		Enabled           bool    `yaml:"enabled"`
		BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
		APIKey            string  `yaml:"api_key"`
		Model             string  `yaml:"model"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
		Burst             int     `yaml:"burst" validate:"gte=0"`
	} `yaml:"entity_service"`

	Batch struct {
		Concurrency int  `yaml:"concurrency" validate:"gte=1"`
		ChunkSize   int  `yaml:"chunk_size" validate:"gte=1"`
		AutoVersion bool `yaml:"auto_version"`
	} `yaml:"batch"`

	// Redis mirrors job progress when Addr is set
	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db" validate:"gte=0"`
		TTL       time.Duration `yaml:"ttl"`
		KeyPrefix string        `yaml:"key_prefix"`
	} `yaml:"redis"`

	Archive struct {
		Path     string `yaml:"path"`
		InMemory bool   `yaml:"in_memory"`
	} `yaml:"archive"`

	Server struct {
		Addr         string        `yaml:"addr" validate:"required"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
}

// ComplianceFamily is a keyword family for one regulation
type ComplianceFamily struct {
	Regulation   string   `yaml:"regulation" validate:"required"`
	Requirement  string   `yaml:"requirement" validate:"required"`
	Keywords     []string `yaml:"keywords" validate:"min=1"`
	Threshold    int      `yaml:"threshold" validate:"gte=0"`
	Jurisdiction string   `yaml:"jurisdiction"`
	References   []string `yaml:"references"`
}

// apiKeyEnv is consulted when entity_service.api_key is empty
const apiKeyEnv = "LEXSCAN_ENTITY_API_KEY"

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Analysis.Analyzer = "lexscan"
	cfg.Analysis.AnalysisVersion = "1.0"
	cfg.Versioning.MaxVersionsPerDocument = 50
	cfg.OCR.Timeout = 60 * time.Second
	cfg.OCR.MaxRetries = 3
	cfg.EntityService.Model = "gpt-4o-mini"
	cfg.EntityService.RequestsPerSecond = 2
	cfg.EntityService.Burst = 1
	cfg.Batch.Concurrency = 4
	cfg.Batch.ChunkSize = 10
	cfg.Redis.TTL = 24 * time.Hour
	cfg.Redis.KeyPrefix = "lexscan:job:"
	cfg.Archive.Path = paths.GetArchiveDir()
	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 120 * time.Second
	return cfg
}

// LoadConfig loads configuration from the specified file path. Fields the
// file does not mention keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(filepath.Clean(configPath))
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if cfg.EntityService.APIKey == "" {
		cfg.EntityService.APIKey = os.Getenv(apiKeyEnv)
	} else {
		cfg.EntityService.APIKey = os.ExpandEnv(cfg.EntityService.APIKey)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct constraints
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// LoadConfigOrDefault loads configFile, falling back to defaults on any error
func LoadConfigOrDefault(configFile string) *Config {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return Default()
	}
	return cfg
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"lexscan.yaml", "lexscan.yml", ".lexscan.yaml"} {
		if fileExists(name) {
			return name
		}
	}
	if p := paths.GetConfigFile(); fileExists(p) {
		return p
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".lexscan.yaml")
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
