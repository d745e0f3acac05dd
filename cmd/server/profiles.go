package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/scoring"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the configured venue profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		venues, err := config.LoadVenues(cfg.VenuesFile)
		if err != nil {
			return err
		}

		profiles := venues.Profiles()
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		out := cmd.OutOrStdout()
		for _, name := range names {
			p := profiles[name]
			fmt.Fprintf(out, "%s  outcome=%s\n", okStyle.Sprint(name), p.Outcome)
			for _, f := range sortedFactors(p.Weights) {
				fmt.Fprintf(out, "  %-12s %.2f\n", f, p.Weights[f])
			}
		}
		for _, id := range venues.IDs() {
			v := venues.Venue(id)
			fmt.Fprintf(out, "%s %s  profile=%s capacity=%d tz=%s\n",
				labelStyle.Sprint("venue"), id, v.Profile.Name, v.Capacity, v.Location)
		}
		return nil
	},
}

func sortedFactors(w scoring.FactorWeights) []models.Factor {
	out := make([]models.Factor, 0, len(w))
	for f := range w {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
