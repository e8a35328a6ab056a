package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability <size>",
	Short: "Show which start dates are open for a dumpster size",
	Long: `Evaluates every start date from today over the horizon and prints whether a rental of
the given duration fits. Calendar events that could not be read are listed afterwards.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		duration, _ := cmd.Flags().GetInt("duration")
		days, _ := cmd.Flags().GetInt("days")

		unit, duration, days, err := svc.validator.ValidateQuery(args[0], strconv.Itoa(duration), strconv.Itoa(days))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		report, err := svc.engine.Query(cmd.Context(), unit.Tier, duration, days)
		if err != nil {
			slog.Error("Failed to query availability", "error", err)
			os.Exit(1)
		}

		open := make(map[string]bool, len(report.Available))
		for _, d := range report.Available {
			open[d.String()] = true
		}

		fmt.Printf("%s, %d day rental, next %d days\n\n", report.Size, report.DurationDays, report.Days)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "START\tEND\tAVAILABLE")
		today := svc.engine.Today()
		for i := 0; i < report.Days; i++ {
			start := today.AddDays(i)
			answer := "no"
			if open[start.String()] {
				answer = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", start, start.AddDays(report.DurationDays), answer)
		}
		w.Flush()

		printSkipped(report.Skipped)
	},
}

func init() {
	availabilityCmd.Flags().Int("duration", 7, "Rental length in days")
	availabilityCmd.Flags().Int("days", 90, "How many start dates to evaluate")
	rootCmd.AddCommand(availabilityCmd)
}
