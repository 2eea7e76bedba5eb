package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/buildledger/internal/importer"
	"github.com/fyrsmithlabs/buildledger/internal/model"
	"github.com/fyrsmithlabs/buildledger/internal/project"
)

var (
	importProjectID string
	importActor     string
	importMapping   []string
	importDryRun    bool
	importStrict    bool
)

func init() {
	importCostsCmd.Flags().StringVar(&importProjectID, "project", "", "project ID to import into (required)")
	importCostsCmd.Flags().StringVar(&importActor, "as", "", "email of the acting user (required, must be project editor)")
	importCostsCmd.Flags().StringSliceVar(&importMapping, "map", nil, "column mapping as csv-header=field, repeatable (required)")
	importCostsCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate without writing")
	importCostsCmd.Flags().BoolVar(&importStrict, "all-or-nothing", false, "abort the whole import if any row is invalid")
	_ = importCostsCmd.MarkFlagRequired("project")
	_ = importCostsCmd.MarkFlagRequired("as")
	_ = importCostsCmd.MarkFlagRequired("map")
	importCmd.AddCommand(importCostsCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk imports",
}

var importCostsCmd = &cobra.Command{
	Use:   "costs <file.csv>",
	Short: "Import cost entries from a CSV file",
	Long: `Import cost entries from a CSV file using an explicit column mapping.

Fields: title, amount, date, category, status, invoice_no, notes, currency.
title, amount, and date are required.

Examples:
  blctl import costs --project 4f1c... --as alice@example.com \
    --map Beschreibung=title --map Betrag=amount --map Datum=date \
    --dry-run costs.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapping, err := parseMapping(importMapping)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		st, _, logger, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		actor, err := st.GetUserByEmail(ctx, importActor)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("no user with email %s", importActor)
			}
			return err
		}

		projects := project.NewService(st, nil, project.Config{}, logger)
		svc := importer.NewService(st, projects, logger)

		report, err := svc.ImportCosts(ctx, actor, importProjectID, f, importer.Options{
			Mapping:      mapping,
			DryRun:       importDryRun,
			AllOrNothing: importStrict,
		})
		if report != nil {
			printReport(report)
		}
		return err
	},
}

func parseMapping(pairs []string) (importer.Mapping, error) {
	mapping := make(importer.Mapping, len(pairs))
	for _, pair := range pairs {
		header, field, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q, expected csv-header=field", pair)
		}
		mapping[header] = field
	}
	return mapping, nil
}

func printReport(r *importer.Report) {
	for _, re := range r.Rejected {
		fmt.Fprintf(os.Stderr, "line %d: %s\n", re.Line, re.Message)
	}
	verb := "imported"
	if r.DryRun {
		verb = "would import"
	}
	fmt.Printf("%s %d of %d rows (%d rejected)\n", verb, r.Accepted, r.Total, len(r.Rejected))
}
