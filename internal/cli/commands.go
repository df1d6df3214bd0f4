package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/youruser/ayahapp/internal/backend"
	imagepkg "github.com/youruser/ayahapp/internal/image"
	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/reference"
	"github.com/youruser/ayahapp/internal/session"
	"github.com/youruser/ayahapp/internal/util"
)

func parseRef(arg string) (reference.Reference, error) {
	ref, err := reference.Parse(arg)
	if err != nil {
		return reference.Reference{}, errors.New(reference.FormatError)
	}
	return ref, nil
}

func newGenerateCmd(e *env) *cobra.Command {
	var (
		bgPath string
		scale  float64
		out    string
	)
	cmd := &cobra.Command{
		Use:   "generate REF",
		Short: "Render REF over a background and save the composite PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			var bg *backend.File
			if bgPath != "" {
				data, err := os.ReadFile(bgPath)
				if err != nil {
					return fmt.Errorf("read background: %w", err)
				}
				// reject non-images before they reach the backend
				if _, err := imagepkg.PreviewDataURL(data); err != nil {
					return fmt.Errorf("%w: %s", session.ErrInvalidBackground, bgPath)
				}
				bg = &backend.File{Name: filepath.Base(bgPath), Data: data}
			}
			if !cmd.Flags().Changed("scale") {
				scale = e.svc.Config.Backend.ScaleFactor
			}
			img, err := e.svc.Backend.GenerateComposite(cmd.Context(), ref, bg, scale)
			if err != nil {
				return fmt.Errorf("%s: %w", session.GenerateFailed, err)
			}
			if err := util.WriteFile(out, img.Data); err != nil {
				return err
			}
			slog.Info("composite saved", "ref", ref.String(), "path", out, "bytes", len(img.Data))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&bgPath, "background", "b", "", "background image file")
	cmd.Flags().Float64Var(&scale, "scale", backend.DefaultScaleFactor, "scale factor sent to the backend")
	cmd.Flags().StringVarP(&out, "out", "o", session.CompositeFilename, "output file")
	return cmd
}

func newChaptersCmd(e *env) *cobra.Command {
	var q, place string
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "List suras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := e.svc.Quran.Chapters(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range quran.Filter(all, quran.FilterOptions{FreeWords: q, RevelationPlace: place}) {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-20s %s  (%d)\n", c.ID, c.NameSimple, c.NameArabic, c.VersesCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&q, "q", "q", "", "filter by name or number")
	cmd.Flags().StringVar(&place, "place", "", "makkah or madinah")
	return cmd
}

func newVerseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verse REF",
		Short: "Print the Uthmani text of REF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			text, err := e.svc.Quran.VerseText(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("no text for %s", ref)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newAyahURLCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ayah-url REF",
		Short: "Print the backend image URL for REF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.svc.Backend.AyahImageURL(ref))
			return nil
		},
	}
}

func newSurahURLCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "surah-url N",
		Short: "Print the backend image URL for a whole sura",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 || n > 999 {
				return fmt.Errorf("invalid sura %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.svc.Backend.SurahImageURL(n))
			return nil
		},
	}
}

func newMetadataCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print the backend gallery metadata as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := e.svc.Backend.Metadata(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
}
