package main

import (
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	// Import analyzer packages to register them
	_ "github.com/jengzang/pulse-backend-go/internal/analysis/learning"
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Venue fit-score backend",
	Long:  `Pulse ingests venue sensor readings and scores how well the environment fits the time of week.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch mode, _ := cmd.Flags().GetString("color"); mode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		}
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(profilesCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
