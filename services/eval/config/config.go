// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the evaluation scenario
// configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/Veracity/services/eval"
	"github.com/AleutianAI/Veracity/services/eval/scoring"
)

var (
	// ErrInvalidWeights reports pillar weights that are negative or do
	// not sum to one.
	ErrInvalidWeights = errors.New("config: invalid pillar weights")

	// ErrInvalidRaterWeights reports non-positive rater weights.
	ErrInvalidRaterWeights = errors.New("config: invalid rater weights")
)

// weightSumTolerance bounds the allowed drift of the weight sum from 1.
const weightSumTolerance = 1e-6

var validate = validator.New()

// BootstrapConfig controls resampling across all engines.
type BootstrapConfig struct {
	// Iterations is the resample count; values below 1000 are raised
	// to the floor at run time.
	Iterations int `yaml:"iterations" validate:"gte=0"`

	// Workers caps resampling parallelism; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`

	// Seed makes runs deterministic; 0 draws from the clock.
	Seed uint64 `yaml:"seed"`
}

// StoreConfig locates the embedded run database.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// APIConfig controls the results API server.
type APIConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig controls tracing and metrics exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus none"`
	PrometheusPort int    `yaml:"prometheus_port" validate:"gte=0,lte=65535"`
}

// Config is the full evaluation scenario configuration.
type Config struct {
	// Weights maps pillar names to composite weights. Must sum to one.
	Weights map[string]float64 `yaml:"weights"`

	// RaterWeights optionally weights individual raters in the judge
	// panel. Raters not listed weigh one. All values must be positive.
	RaterWeights map[string]float64 `yaml:"rater_weights"`

	// IncludeProvisional admits provisional scores into cross-system
	// comparisons. Off by default: provisional scores are not
	// comparable to full ones.
	IncludeProvisional bool `yaml:"include_provisional"`

	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Store     StoreConfig     `yaml:"store"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the built-in scenario configuration.
func Default() Config {
	weights := make(map[string]float64)
	for p, w := range scoring.DefaultWeights() {
		weights[string(p)] = w
	}
	return Config{
		Weights: weights,
		Bootstrap: BootstrapConfig{
			Iterations: 1000,
		},
		Store: StoreConfig{
			Path: "data/veracity",
		},
		API: APIConfig{
			Addr: "localhost:8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			PrometheusPort: 9090,
		},
	}
}

// Load reads a YAML configuration file over the defaults.
//
// Description:
//
//	Starts from Default() so a partial file only overrides what it
//	names, then validates the merged result. Weight errors fail fast;
//	they are configuration bugs, not recoverable conditions.
//
// Inputs:
//   - path: The YAML file to read.
//
// Outputs:
//   - Config: The merged, validated configuration.
//   - error: Non-nil on read, parse, or validation failure.
//
// Thread Safety: Safe for concurrent use.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse merges raw YAML over the defaults and validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural tags and the weight invariants.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	sum := 0.0
	for name, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("%w: pillar %q has negative weight %v", ErrInvalidWeights, name, w)
		}
		if _, err := pillarFor(name); err != nil {
			return err
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum %v, want 1", ErrInvalidWeights, sum)
	}

	for rater, w := range c.RaterWeights {
		if w <= 0 {
			return fmt.Errorf("%w: rater %q has weight %v", ErrInvalidRaterWeights, rater, w)
		}
	}
	return nil
}

// PillarWeights converts the configured weights to typed pillar keys.
func (c Config) PillarWeights() (map[eval.Pillar]float64, error) {
	out := make(map[eval.Pillar]float64, len(c.Weights))
	for name, w := range c.Weights {
		p, err := pillarFor(name)
		if err != nil {
			return nil, err
		}
		out[p] = w
	}
	return out, nil
}

func pillarFor(name string) (eval.Pillar, error) {
	for _, p := range eval.Pillars() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", eval.ErrUnknownPillar, name)
}
