package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize students in a photo and mark them present",
	Long: `Detect faces in a class photo, match them against the roster and record
attendance for every student recognized for the first time today.

Examples:
  face-attendance recognize class.jpg
  face-attendance recognize class.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Recognize(ctx, data)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toRecognizeOutput(result))
	}

	fmt.Println(result.Message)
	fmt.Printf("Faces detected: %d, unmatched: %d\n\n", len(result.DetectedFaces), result.Unmatched)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tROLL\tNAME\tSIMILARITY\tBOX")
	printMatches := func(matches []attendance.StudentMatch) {
		for _, m := range matches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%d,%d %dx%d\n",
				m.Status, m.RollNumber, m.Name, m.Similarity, m.Box.X, m.Box.Y, m.Box.Width, m.Box.Height)
		}
	}
	printMatches(result.Recognized)
	printMatches(result.AlreadyPresent)
	for _, u := range result.Unrecorded {
		fmt.Fprintf(w, "not recorded\t%s\t%s\t%.3f\t%s\n", u.RollNumber, u.Name, u.Similarity, u.Error)
	}
	return w.Flush()
}
