package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	EnvFile string
	Dev     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "auction-server",
		Short: "Live player auction server",
		Long:  "Runs a live player auction: one auctioneer drives bidding over a websocket while every viewer follows along.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.EnvFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", opts.EnvFile, err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file read before the environment")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "human-readable development logging")

	serve := newServeCommand(opts)
	cmd.AddCommand(serve)
	cmd.AddCommand(newCatalogCommand(opts))

	// bare invocation serves
	cmd.RunE = serve.RunE
	return cmd
}

func newLogger(level string, dev bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = lvl
	return cfg.Build()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
