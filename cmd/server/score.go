package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

var (
	okStyle    = color.New(color.FgGreen, color.Bold)
	warnStyle  = color.New(color.FgYellow, color.Bold)
	badStyle   = color.New(color.FgRed, color.Bold)
	labelStyle = color.New(color.FgCyan)
)

func statusStyle(status string) *color.Color {
	switch status {
	case models.StatusOptimal:
		return okStyle
	case models.StatusGood:
		return warnStyle
	default:
		return badStyle
	}
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a venue's latest reading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		venueID, _ := cmd.Flags().GetString("venue")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.scoring.ScoreLatest(venueID)
		if err != nil {
			return err
		}
		printScore(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("venue", "", "venue ID")
	_ = scoreCmd.MarkFlagRequired("venue")
}

func printScore(w io.Writer, r *models.ScoringResult) {
	fmt.Fprintf(w, "%s %s  %s\n",
		labelStyle.Sprint(r.VenueID),
		statusStyle(r.Status).Sprintf("%d %s", r.FinalScore, r.Status),
		r.StatusMessage)
	fmt.Fprintf(w, "  slot %s, profile %s, confidence %.2f\n", r.TimeSlot, r.Profile, r.Confidence)

	learned := "n/a"
	if r.Breakdown.LearnedScore != nil {
		learned = fmt.Sprintf("%.1f", *r.Breakdown.LearnedScore)
	}
	fmt.Fprintf(w, "  generic %.1f (w %.2f), learned %s (w %.2f)\n",
		r.Breakdown.GenericScore, r.Breakdown.Weights.GenericWeight,
		learned, r.Breakdown.Weights.LearnedWeight)

	factors := make([]string, 0, len(r.Breakdown.PerFactorScores.Generic))
	for f := range r.Breakdown.PerFactorScores.Generic {
		factors = append(factors, string(f))
	}
	sort.Strings(factors)
	for _, name := range factors {
		f := models.Factor(name)
		line := fmt.Sprintf("  %-12s %6.1f  %s", name,
			r.Breakdown.PerFactorScores.Generic[f],
			r.Breakdown.OptimalRangesUsed.Generic[f])
		if v, ok := r.Breakdown.PerFactorScores.Learned[f]; ok {
			line += fmt.Sprintf("  learned %6.1f  %s", v, r.Breakdown.OptimalRangesUsed.Learned[f])
		}
		fmt.Fprintln(w, line)
	}
}
