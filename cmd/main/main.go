package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"record-linkage/internal/config"
	"record-linkage/internal/linkage/model"
)

// app: общее состояние команд после PersistentPreRunE.
type app struct {
	verbose    int
	fieldsFile string

	cfg    config.Config
	fields []model.FieldSpec
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "record-linkage",
		Short:         "Link supplier records across two sources with an actively learned model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().StringVar(&a.fieldsFile, "fields", "", "YAML field configuration (default FIELDS_FILE or a single String field sss)")

	root.AddCommand(newLinkCmd(a), newLinkDBCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// CLI по умолчанию молчит (warn), как и раньше; serve пишет info.
	if os.Getenv("LOG_LEVEL") == "" && cmd.Name() != "serve" {
		cfg.LogLevel = "warn"
	}
	if a.fieldsFile != "" {
		cfg.FieldsFile = a.fieldsFile
	}
	a.cfg = cfg
	a.logger = config.SetupLogger(cfg, a.verbose, os.Stderr)

	a.fields, err = config.LoadFields(cfg.FieldsFile)
	return err
}
