// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "paddock.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// RunMode represents the operational mode of the paddock node
type RunMode string

const (
	RunModeServe RunMode = "serve" // Long-running registry node (default)
	RunModeDemo  RunMode = "demo"  // Seeded in-memory provenance scenario
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDemo, "":
		return true
	default:
		return false
	}
}

type Config struct {
	MetadataPlugin  string  `yaml:"metadataPlugin"  envconfig:"PADDOCK_DATABASE_METADATA_PLUGIN"`
	BlobPlugin      string  `yaml:"blobPlugin"      envconfig:"PADDOCK_DATABASE_BLOB_PLUGIN"`
	DatabasePath    string  `yaml:"databasePath"                                                split_words:"true"`
	BindAddr        string  `yaml:"bindAddr"                                                    split_words:"true"`
	Admin           string  `yaml:"admin"`
	Oracle          string  `yaml:"oracle"`
	BlockInterval   string  `yaml:"blockInterval"                                               split_words:"true"`
	ShutdownTimeout string  `yaml:"shutdownTimeout"                                             split_words:"true"`
	MintFee         uint64  `yaml:"mintFee"                                                     split_words:"true"`
	MaxProducts     uint64  `yaml:"maxProducts"                                                 split_words:"true"`
	CustodyEventCap int     `yaml:"custodyEventCap"                                             split_words:"true"`
	AttestationCap  int     `yaml:"attestationCap"                                              split_words:"true"`
	MetricsPort     uint    `yaml:"metricsPort"                                                 split_words:"true"`
	Tracing         bool    `yaml:"tracing"`
	TracingStdout   bool    `yaml:"tracingStdout"                                               split_words:"true"`
	RunMode         RunMode `yaml:"runMode"         envconfig:"PADDOCK_RUN_MODE"`
}

var globalConfig = &Config{
	BindAddr:        "0.0.0.0",
	DatabasePath:    ".paddock",
	MetricsPort:     12798,
	MintFee:         0,
	MaxProducts:     1_000_000,
	CustodyEventCap: 100,
	AttestationCap:  50,
	BlockInterval:   "1s",
	BlobPlugin:      DefaultBlobPlugin,
	MetadataPlugin:  DefaultMetadataPlugin,
	RunMode:         RunModeServe,
	ShutdownTimeout: DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.paddock/paddock.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".paddock", "paddock.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/paddock/paddock.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/paddock/paddock.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("paddock", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Validate and default RunMode
	if !globalConfig.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'demo')",
			globalConfig.RunMode,
		)
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}

	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
