package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"devis/collections"
	"devis/config"
	"devis/services"
	"devis/storage"
)

func registerCommands(app *pocketbase.PocketBase, cfg *config.Config, drafts *storage.Mirror) {
	app.RootCmd.AddCommand(
		exportPDFCommand(app),
		importCatalogCommand(app, cfg),
		storageStatusCommand(drafts),
	)
}

func exportPDFCommand(app *pocketbase.PocketBase) *cobra.Command {
	var quoteID, out string

	cmd := &cobra.Command{
		Use:   "export-pdf",
		Short: "Render a stored quote to a PDF file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := collections.Setup(app); err != nil {
				return err
			}
			pdf, data, err := services.RenderQuotePDF(app, quoteID)
			if err != nil {
				return fmt.Errorf("export quote %s: %w", quoteID, err)
			}
			if out == "" {
				out = "devis-" + services.Slugify(data.Number) + ".pdf"
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s written (%s)\n", out, humanize.Bytes(uint64(len(pdf))))
			return nil
		},
	}
	cmd.Flags().StringVar(&quoteID, "quote", "", "id of the quote record")
	cmd.Flags().StringVar(&out, "out", "", "output file (default devis-<number>.pdf)")
	cmd.MarkFlagRequired("quote")
	return cmd
}

func importCatalogCommand(app *pocketbase.PocketBase, cfg *config.Config) *cobra.Command {
	var companyID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-catalog <file.xlsx|file.csv>",
		Short: "Import work catalog entries for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := collections.Setup(app); err != nil {
				return err
			}
			if companyID == "" {
				companyID = cfg.App.DefaultCompany
			}
			company, err := collections.DefaultCompany(app, companyID)
			if err != nil {
				return fmt.Errorf("company: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := services.ValidateCatalogFile(f, filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d rows, %d valid, %d with errors\n", res.TotalRows, res.ValidRows, res.ErrorRows)
			for _, col := range res.Unrecognized {
				fmt.Fprintf(w, "  ignored column %q\n", col)
			}
			for _, ve := range res.Errors {
				fmt.Fprintf(w, "  row %d, %s: %s\n", ve.Row, ve.Field, ve.Message)
			}
			if dryRun || res.ValidRows == 0 {
				return nil
			}

			imported, err := services.CommitCatalogImport(app, company.Id, res.ParsedRows)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d created, %d updated, %d failed\n",
				company.GetString("name"), imported.Created, imported.Updated, imported.Failed)
			if imported.RolledBack {
				return errors.New("some rows were rolled back")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&companyID, "company", "", "company id (default: configured or oldest company)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only")
	return cmd
}

func storageStatusCommand(drafts *storage.Mirror) *cobra.Command {
	return &cobra.Command{
		Use:   "storage-status",
		Short: "Check which draft stores are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := false
			for _, st := range drafts.Refresh(context.Background()) {
				state := "up"
				if !st.Available {
					state = "down: " + st.Error
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", st.Name, state)
				available = available || st.Available
			}
			if !available {
				zap.S().Error("storage: no draft store available")
				return storage.ErrNoStorageAvailable
			}
			return nil
		},
	}
}
