package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/service"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show the time slot and expectations for an instant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		venueID, _ := cmd.Flags().GetString("venue")
		atRaw, _ := cmd.Flags().GetString("at")

		var at time.Time
		if atRaw != "" {
			var err error
			if at, err = time.Parse(time.RFC3339, atRaw); err != nil {
				return errors.Wrap(err, "--at must be RFC3339")
			}
		}

		cfg := loadConfig()
		venues, err := config.LoadVenues(cfg.VenuesFile)
		if err != nil {
			return err
		}
		svc := service.NewScoringService(nil, nil, venues, nil, service.ScoringOptions{})

		info := svc.Classify(venueID, at)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", info.At.Format(time.RFC1123), okStyle.Sprint(info.TimeSlot))
		fmt.Fprintf(out, "  %-10s %s\n", labelStyle.Sprint("sound"), info.Expectations.Sound)
		fmt.Fprintf(out, "  %-10s %s\n", labelStyle.Sprint("light"), info.Expectations.Light)
		fmt.Fprintf(out, "  %-10s %s\n", labelStyle.Sprint("occupancy"), info.Expectations.Occupancy)
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("venue", "", "venue ID, selects the venue's timezone")
	classifyCmd.Flags().String("at", "", "instant to classify (RFC3339), defaults to now")
}
