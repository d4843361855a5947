package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"badgeworks/internal/badge/artifact"
	"badgeworks/internal/badge/catalog"
	"badgeworks/internal/badge/models"
	"badgeworks/internal/badge/render"
	"badgeworks/internal/platform/config"
	id "badgeworks/pkg/domain"
)

func renderCmd() *cobra.Command {
	var (
		firstName    string
		lastName     string
		issuer       string
		keyCode      string
		catalogPath  string
		templatePath string
		outDir       string
		date         string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a badge image and document to local files",
		Long: `Render draws a badge exactly as the server would and writes
<keyCode>.png and <keyCode>.pdf to the output directory. Nothing is
uploaded or recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}
			code := id.KeyCode(keyCode)
			if !cat.Contains(code) {
				return fmt.Errorf("unknown key code %q", keyCode)
			}

			issuedAt := time.Now().UTC()
			if date != "" {
				if issuedAt, err = time.Parse(time.DateOnly, date); err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
			}

			tmpl, err := render.LoadTemplate(templatePath)
			if err != nil {
				return err
			}
			out, err := render.New(tmpl).Render(models.BadgeRecord{
				FirstName:      firstName,
				LastName:       lastName,
				KeyCode:        code,
				KeyDescription: cat.Describe(code),
				Issuer:         issuer,
				CreatedAt:      issuedAt,
			})
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			files := []struct {
				body        []byte
				contentType string
			}{
				{out.Image, models.ContentTypePNG},
				{out.Document, models.ContentTypePDF},
			}
			for _, f := range files {
				name, err := artifact.ObjectKey(keyCode, f.contentType)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, f.body, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(f.body))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "Recipient first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Recipient last name")
	cmd.Flags().StringVar(&issuer, "issuer", "", "Issuing organization")
	cmd.Flags().StringVarP(&keyCode, "key-code", "k", "", "Catalog key code")
	cmd.Flags().StringVar(&catalogPath, "catalog", config.DefaultCatalogPath, "Catalog file")
	cmd.Flags().StringVar(&templatePath, "template", config.DefaultTemplatePath, "Base template image")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().StringVar(&date, "date", "", "Issue date as YYYY-MM-DD (default today)")
	for _, name := range []string{"first-name", "last-name", "issuer", "key-code"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
