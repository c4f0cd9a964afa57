package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gaiaf/internal/evaluate"
	"gaiaf/internal/model"
	"gaiaf/internal/storage"
)

const defaultHistoryPath = "training-data/HistoricalPrices-reversed.csv"

// FileConfig is the YAML configuration file. Fields left out of the file keep
// their defaults; command-line flags override both.
type FileConfig struct {
	Experiment model.ExperimentConfig `yaml:"experiment"`
	Evaluator  EvaluatorConfig        `yaml:"evaluator"`
	Store      StoreConfig            `yaml:"store"`
	HTTP       HTTPConfig             `yaml:"http"`
	Log        LogConfig              `yaml:"log"`
}

type EvaluatorConfig struct {
	HistoryPath string `yaml:"history_path" validate:"required"`
	TargetIndex int    `yaml:"target_index" validate:"gte=0"`
	LeadCount   int    `yaml:"lead_count" validate:"gte=1"`
}

type StoreConfig struct {
	Kind   string `yaml:"kind" validate:"oneof=memory sqlite"`
	DBPath string `yaml:"db_path" validate:"required_if=Kind sqlite"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Experiment: model.DefaultExperimentConfig(),
		Evaluator: EvaluatorConfig{
			HistoryPath: defaultHistoryPath,
			TargetIndex: evaluate.DefaultTargetIndex,
			LeadCount:   evaluate.DefaultLeadCount,
		},
		Store: StoreConfig{Kind: storage.DefaultStoreKind(), DBPath: "gaiaf.db"},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// loadFileConfig returns the defaults overlaid with path, when given.
func loadFileConfig(path string) (FileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c FileConfig) Validate() error {
	return model.ValidateStruct(c)
}

func (c FileConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
