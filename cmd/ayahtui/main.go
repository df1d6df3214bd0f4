package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/youruser/ayahapp/internal/app"
	"github.com/youruser/ayahapp/internal/config"
	"github.com/youruser/ayahapp/internal/session"
	"github.com/youruser/ayahapp/internal/tui"
)

func main() {
	var bgPath, outDir, logFile, ref string
	cmd := &cobra.Command{
		Use:          "ayahtui",
		Short:        "Pick an ayah and render its image from the terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// the terminal belongs to the UI, so logs go to a file or nowhere
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			app.SetupLogger(w, cfg.Log.Level)

			svc := app.New(cfg)
			// the terminal has no default background URL to show
			deps := svc.Deps(nil)
			deps.DefaultBackground = ""
			s := session.New(uuid.NewString(), deps)
			if bgPath != "" {
				data, err := os.ReadFile(bgPath)
				if err != nil {
					return err
				}
				if err := s.SetBackground(filepath.Base(bgPath), data); err != nil {
					return err
				}
			}
			if ref != "" {
				s.SetText(ref)
			}

			_, err = tea.NewProgram(tui.New(s, svc.HTTP, outDir)).Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&bgPath, "background", "b", "", "background image file")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory downloads are saved to")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	cmd.Flags().StringVarP(&ref, "ref", "r", "", "initial reference, e.g. 2:255")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
