package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Print today's attendance",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.TodayAttendance(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toAttendanceOutput(report.Entries))
	}

	fmt.Printf("Attendance for %s: %d present\n\n", database.DayKey(report.Date), len(report.Entries))
	if len(report.Entries) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tROLL\tNAME\tYEAR\tSESSION\tSIMILARITY")
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.3f\n",
			e.Time.Local().Format(time.TimeOnly), e.RollNumber, e.StudentName, e.Year, e.Session, e.SimilarityScore)
	}
	return w.Flush()
}
