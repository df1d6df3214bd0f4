// Package cli implements the ayahctl commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/youruser/ayahapp/internal/app"
	"github.com/youruser/ayahapp/internal/config"
)

type rootOptions struct {
	Backend  string
	Quran    string
	LogLevel string
}

// env carries what every subcommand needs once the root pre-run has loaded config.
type env struct {
	opts rootOptions
	svc  *app.Services
}

func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "ayahctl",
		Short:         "Look up ayahs and render composite images from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if e.opts.Backend != "" {
				cfg.Backend.BaseURL = strings.TrimRight(e.opts.Backend, "/")
			}
			if e.opts.Quran != "" {
				cfg.Quran.BaseURL = strings.TrimRight(e.opts.Quran, "/")
			}
			if e.opts.LogLevel != "" {
				cfg.Log.Level = e.opts.LogLevel
			}
			app.SetupLogger(cmd.ErrOrStderr(), cfg.Log.Level)
			e.svc = app.New(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.opts.Backend, "backend", "", "image backend base URL (overrides config)")
	root.PersistentFlags().StringVar(&e.opts.Quran, "quran", "", "quran.com API base URL (overrides config)")
	root.PersistentFlags().StringVar(&e.opts.LogLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newGenerateCmd(e),
		newChaptersCmd(e),
		newVerseCmd(e),
		newAyahURLCmd(e),
		newSurahURLCmd(e),
		newMetadataCmd(e),
	)
	return root
}

// Execute runs ayahctl and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
