package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/location"
	"github.com/couchcryptid/cloudtracker/internal/observability"
	"github.com/couchcryptid/cloudtracker/internal/pipeline"
)

type captureFlags struct {
	lat, lon   float64
	permission string
}

func captureCommand(e *env) *cobra.Command {
	var f captureFlags
	cmd := &cobra.Command{
		Use:   "capture <photo>",
		Short: "Identify the cloud in a photo and add it to the collection",
		Long: `Normalize the photo, resolve where it was taken, ask the vision model
for the cloud type and save the result. Passing --lat and --lon reports a
location fix and grants location access for this run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return errors.New("--lat and --lon must be given together")
			}
			if latSet && (f.lat < -90 || f.lat > 90 || f.lon < -180 || f.lon > 180) {
				return fmt.Errorf("coordinates out of range: %v, %v", f.lat, f.lon)
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}

			cfg := e.cfg
			if f.permission != "" {
				cfg.LocationPermission = f.permission
			}
			logger := observability.NewConsoleLogger(cfg, cmd.ErrOrStderr())
			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best-effort on exit

			ctx := cmd.Context()
			if latSet {
				a.platform.SetAuthorization(location.Authorized)
				ctx = location.WithReportedFix(ctx, domain.Coordinates{Latitude: f.lat, Longitude: f.lon})
			}

			progress := cmd.ErrOrStderr()
			p, err := a.newPipeline(pipeline.WithObserver(func(s pipeline.Stage) {
				if !s.Terminal() {
					fmt.Fprintln(progress, s.Label())
				}
			}))
			if err != nil {
				return err
			}

			rec, err := p.Capture(ctx, raw)
			if err != nil {
				return errors.New(domain.UserMessage(err))
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude of the reported location fix")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "longitude of the reported location fix")
	cmd.Flags().StringVar(&f.permission, "location-permission", "", "location authorization: not_determined, authorized, denied, restricted")
	return cmd
}
