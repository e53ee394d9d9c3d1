package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "VIBECOPE_"

type Config struct {
	Root    string        `koanf:"root"`
	Dataset DatasetConfig `koanf:"dataset"`
	Output  OutputConfig  `koanf:"output"`
	Eval    EvalConfig    `koanf:"eval"`
	Log     LogConfig     `koanf:"log"`
}

type DatasetConfig struct {
	Dir    string `koanf:"dir"`
	Hustle string `koanf:"hustle"`
	Normal string `koanf:"normal"`
}

type OutputConfig struct {
	Dir        string `koanf:"dir"`
	Vocabulary string `koanf:"vocabulary"`
	Weights    string `koanf:"weights"`
}

type EvalConfig struct {
	Workers int    `koanf:"workers"`
	Shuffle bool   `koanf:"shuffle"`
	Seed    uint64 `koanf:"seed"`
}

type LogConfig struct {
	Color   string `koanf:"color"`
	Timings bool   `koanf:"timings"`
}

func Defaults() Config {
	return Config{
		Root: ".",
		Dataset: DatasetConfig{
			Dir:    filepath.Join("tools", "dataset"),
			Hustle: "hustle.jsonl",
			Normal: "normal.jsonl",
		},
		Output: OutputConfig{
			Dir:        filepath.Join("utils", "scoring", "ml"),
			Vocabulary: "vocabulary.json",
			Weights:    "weights.json",
		},
		Eval: EvalConfig{
			Workers: 4,
			Seed:    42,
		},
		Log: LogConfig{
			Color: "auto",
		},
	}
}

// Load starts from Defaults, then applies the YAML file at path (skipped when
// path is empty) and finally VIBECOPE_* environment variables, where
// VIBECOPE_DATASET_DIR sets dataset.dir.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Dataset.Hustle == "" || c.Dataset.Normal == "" {
		return fmt.Errorf("config: dataset file names are required")
	}
	if c.Output.Vocabulary == "" || c.Output.Weights == "" {
		return fmt.Errorf("config: output file names are required")
	}
	if c.Output.Vocabulary == c.Output.Weights {
		return fmt.Errorf("config: vocabulary and weights must be different files")
	}
	if c.Eval.Workers < 0 {
		return fmt.Errorf("config: eval.workers must be >= 0, got %d", c.Eval.Workers)
	}
	switch c.Log.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("config: log.color must be auto, on or off, got %q", c.Log.Color)
	}
	return nil
}

// DatasetDir resolves the dataset directory against Root.
func (c *Config) DatasetDir() string { return c.resolve(c.Dataset.Dir) }

// OutputDir resolves the output directory against Root.
func (c *Config) OutputDir() string { return c.resolve(c.Output.Dir) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
