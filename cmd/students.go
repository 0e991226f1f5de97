package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List registered students",
	Long: `List registered students.

Examples:
  face-attendance students
  face-attendance students --query novak`,
	RunE: runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)

	studentsCmd.Flags().StringP("query", "q", "", "Filter by name or roll number (case and accent insensitive)")
	studentsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStudents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.service.Students(ctx, mustGetString(cmd, "query"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toStudentOutput(students))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLL\tNAME\tYEAR\tSESSION\tSIGNATURES\tREGISTERED")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.RollNumber, s.Name, s.Year, s.Session, s.SignatureCount, s.RegisteredAt.Local().Format(time.DateOnly))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d students\n", len(students))
	return nil
}
