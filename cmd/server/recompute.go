package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/service"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild learned ranges from history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		venueID, _ := cmd.Flags().GetString("venue")
		full, _ := cmd.Flags().GetBool("full")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		taskType := models.TaskTypeIncremental
		if full {
			taskType = models.TaskTypeFullRecompute
		}
		task, err := a.tasks.RunTask(cmd.Context(), service.TaskRequest{
			SkillName: models.SkillLearnedRanges,
			TaskType:  taskType,
			VenueID:   venueID,
			CreatedBy: "cli",
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		style := okStyle
		if task.FailedItems > 0 {
			style = warnStyle
		}
		fmt.Fprintf(out, "task %d %s: %d/%d venues, %d failed\n",
			task.ID, style.Sprint(task.Status), task.ProcessedItems, task.TotalItems, task.FailedItems)
		if task.ResultSummary != "" {
			fmt.Fprintln(out, task.ResultSummary)
		}
		return nil
	},
}

func init() {
	recomputeCmd.Flags().String("venue", "", "only this venue")
	recomputeCmd.Flags().Bool("full", false, "recompute fresh models too")
}
