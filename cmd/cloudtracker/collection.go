package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/observability"
	"github.com/couchcryptid/cloudtracker/internal/sample"
)

func listCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the collection, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(e.cfg, observability.NewConsoleLogger(e.cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read-only

			records, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clouds yet. Capture one or run `cloudtracker seed`.")
				return nil
			}
			printTable(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func showCommand(e *env) *cobra.Command {
	var imageOut string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(e.cfg, observability.NewConsoleLogger(e.cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read-only

			rec, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return errors.New(domain.UserMessage(err))
			}
			printRecord(cmd.OutOrStdout(), rec)

			if imageOut != "" {
				if err := os.WriteFile(imageOut, rec.ImageBytes, 0o644); err != nil {
					return fmt.Errorf("write image: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Image written to %s\n", imageOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imageOut, "image-out", "", "write the stored JPEG to this path")
	return cmd
}

func deleteCommand(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a capture, or the whole collection with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("give either a capture id or --all")
			}
			a, err := openApp(e.cfg, observability.NewConsoleLogger(e.cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best-effort on exit

			ctx := cmd.Context()
			if all {
				n, err := a.store.Count(ctx)
				if err != nil {
					return err
				}
				if err := a.store.DeleteAll(ctx); err != nil {
					return err
				}
				a.metrics.RecordsDeleted.Add(float64(n))
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d captures\n", n)
				return nil
			}

			if err := a.store.Delete(ctx, args[0]); err != nil {
				return errors.New(domain.UserMessage(err))
			}
			a.metrics.RecordsDeleted.Inc()
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every capture")
	return cmd
}

func seedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the sample clouds to the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(e.cfg, observability.NewConsoleLogger(e.cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best-effort on exit

			records, err := sample.Seed(cmd.Context(), a.store, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d sample clouds\n", len(records))
			printTable(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func printTable(w io.Writer, records []domain.CaptureRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCAPTURED\tLOCATION")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.CloudType, rec.FormattedDate(time.Local), rec.DisplayLocation())
	}
	_ = tw.Flush()
}

func printRecord(w io.Writer, rec domain.CaptureRecord) {
	fmt.Fprintf(w, "ID:        %s\n", rec.ID)
	fmt.Fprintf(w, "Type:      %s\n", rec.CloudType)
	fmt.Fprintf(w, "Captured:  %s\n", rec.FormattedDate(time.Local))
	fmt.Fprintf(w, "Location:  %s\n", rec.DisplayLocation())
	if rec.Location != nil && rec.LocationName != "" {
		fmt.Fprintf(w, "Coords:    %s\n", rec.Location)
	}
	fmt.Fprintf(w, "Image:     %d bytes\n", len(rec.ImageBytes))
	fmt.Fprintf(w, "\n%s\n", rec.Description)
}
