package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vibecope/internal/logging"
	"vibecope/internal/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier and export its artifacts (default)",
	Args:  cobra.NoArgs,
	RunE:  runTrain,
}

func init() {
	for _, fs := range []*pflag.FlagSet{trainCmd.Flags(), rootCmd.Flags()} {
		fs.Int("workers", 4, "cross-validation folds fitted in parallel")
		fs.Uint64("seed", 42, "seed for shuffled cross-validation")
		fs.Bool("shuffle", false, "shuffle rows before assigning cross-validation folds")
		fs.Bool("timings", false, "show timing information")
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, "train", cfg.Log.Color)
	_, err = trainer.Run(cmd.Context(), trainer.Options{
		Root:        cfg.Root,
		DatasetDir:  cfg.DatasetDir(),
		HustleName:  cfg.Dataset.Hustle,
		NormalName:  cfg.Dataset.Normal,
		OutputDir:   cfg.OutputDir(),
		VocabName:   cfg.Output.Vocabulary,
		WeightsName: cfg.Output.Weights,
		Workers:     cfg.Eval.Workers,
		Shuffle:     cfg.Eval.Shuffle,
		Seed:        cfg.Eval.Seed,
		Timings:     cfg.Log.Timings,
	}, log)
	return err
}
