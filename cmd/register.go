package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

var registerCmd = &cobra.Command{
	Use:   "register <image>...",
	Short: "Register a student from face images",
	Long: `Register a student from 5 to 10 face images.

Examples:
  face-attendance register --name "Ada Lovelace" --roll CS-42 --year 3 --session 2025-26 ada/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Student name (required)")
	registerCmd.Flags().String("roll", "", "Roll number (required, unique)")
	registerCmd.Flags().String("year", "", "Study year")
	registerCmd.Flags().String("session", "", "Academic session")
	registerCmd.Flags().Bool("json", false, "Output as JSON")
}

// readImageFiles loads image files into registration uploads.
func readImageFiles(paths []string) ([]attendance.ImageUpload, error) {
	uploads := make([]attendance.ImageUpload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		uploads = append(uploads, attendance.ImageUpload{Filename: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	images, err := readImageFiles(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Register(ctx, attendance.RegisterRequest{
		Name:       mustGetString(cmd, "name"),
		RollNumber: mustGetString(cmd, "roll"),
		Year:       mustGetString(cmd, "year"),
		Session:    mustGetString(cmd, "session"),
		Images:     images,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(toRegisterOutput(mustGetString(cmd, "roll"), result))
	}

	fmt.Printf("Registered student %s\n", result.StudentID)
	fmt.Printf("  Signatures: %d\n", result.Signatures)
	for _, s := range result.SkippedImages {
		fmt.Printf("  Skipped:    %s (%s)\n", s.Filename, s.Reason)
	}
	for _, u := range result.ImageURLs {
		fmt.Printf("  Image:      %s\n", u)
	}
	for _, n := range result.SimilarTo {
		fmt.Printf("  Warning: looks like %s (%s), similarity %.3f\n", n.Name, n.RollNumber, n.Similarity)
	}
	return nil
}
