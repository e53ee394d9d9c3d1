package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vibecope/internal/config"
	"vibecope/internal/learn"
	"vibecope/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "trainer",
	Short:         "Train and inspect the VibeCope hustle classifier",
	Long:          `Fits TF-IDF features and a logistic regression model on the labeled datasets and exports the vocabulary and weights used by the extension.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return learn.SelfCheck()
	},
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(scoreCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("root", "", "project root that relative paths resolve against")
	flags.String("dataset-dir", "", "directory holding hustle.jsonl and normal.jsonl")
	flags.String("output-dir", "", "directory for vocabulary.json and weights.json")
	flags.String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log := logging.New(os.Stdout, "train", errorColor(rootCmd.PersistentFlags()))
		log.Errorf("%v", err)
		if errors.Is(err, learn.ErrMissingDependency) {
			log.Infof("  the numerical backend failed its self-check, rebuild the trainer")
		}
		os.Exit(1)
	}
}

// errorColor picks the color mode for reporting a failed command: --color when
// given, otherwise the config file and environment, otherwise the flag default.
func errorColor(flags *pflag.FlagSet) string {
	mode, _ := flags.GetString("color")
	if f := flags.Lookup("color"); f != nil && f.Changed {
		return mode
	}
	path, _ := flags.GetString("config")
	if cfg, err := config.Load(path); err == nil {
		return cfg.Log.Color
	}
	return mode
}

// loadConfig reads the config file and environment, then applies any flags
// set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	set := func(name string, apply func()) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	str := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	set("root", func() { cfg.Root = str("root") })
	set("dataset-dir", func() { cfg.Dataset.Dir = str("dataset-dir") })
	set("output-dir", func() { cfg.Output.Dir = str("output-dir") })
	set("color", func() { cfg.Log.Color = str("color") })
	set("workers", func() { cfg.Eval.Workers, _ = cmd.Flags().GetInt("workers") })
	set("seed", func() { cfg.Eval.Seed, _ = cmd.Flags().GetUint64("seed") })
	set("shuffle", func() { cfg.Eval.Shuffle, _ = cmd.Flags().GetBool("shuffle") })
	set("timings", func() { cfg.Log.Timings, _ = cmd.Flags().GetBool("timings") })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
