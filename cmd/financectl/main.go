package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"finances/internal/cli"
	"finances/internal/config"
	"finances/internal/log"
)

var (
	appCfg *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "financectl",
		Short: "Operate the finances ledger from the command line",
		Long: `financectl runs the same services as the HTTP API directly against the
configured store: record and delete transactions, import CSV statements,
print the balance and manage the SQLite schema.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if err := os.Setenv("LOG_LEVEL", level); err != nil {
			return err
		}
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	appCfg = cfg
	logger = cli.SetupLogger(cfg)
	return nil
}
