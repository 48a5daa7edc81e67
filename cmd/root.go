package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pdfqa/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pdfqa <pdf-path>",
	Short: "Ask questions about a PDF",
	Long:  "Extracts the text of every page of a PDF, asks a completion model each question against every page concurrently, and prints the answers most similar to the question.",
	Args:  cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, args[0])
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Driver.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
