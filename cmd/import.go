package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Register many students from a YAML manifest",
	Long: `Register students listed in a YAML manifest. Image paths are relative to
the manifest file.

Manifest format:
  students:
    - name: Ada Lovelace
      roll_number: CS-42
      year: "3"
      session: 2025-26
      images: [ada/1.jpg, ada/2.jpg, ada/3.jpg, ada/4.jpg, ada/5.jpg]

Examples:
  face-attendance import roster.yaml
  face-attendance import roster.yaml --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of students registered in parallel")
	importCmd.Flags().Bool("json", false, "Output as JSON")
}

// ImportManifest lists students to register
type ImportManifest struct {
	Students []ManifestStudent `yaml:"students"`
}

// ManifestStudent is one manifest entry
type ManifestStudent struct {
	Name       string   `yaml:"name"`
	RollNumber string   `yaml:"roll_number"`
	Year       string   `yaml:"year"`
	Session    string   `yaml:"session"`
	Images     []string `yaml:"images"`
}

// ImportResult is the summary of an import run
type ImportResult struct {
	Total         int              `json:"total"`
	Registered    int              `json:"registered"`
	Failed        int              `json:"failed"`
	Students      []RegisterOutput `json:"students"`
	DurationMs    int64            `json:"duration_ms"`
	DurationHuman string           `json:"duration_human,omitempty"`
}

// loadManifest parses a manifest and resolves image paths against its directory.
func loadManifest(path string) (*ImportManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m ImportManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Students) == 0 {
		return nil, errors.New("manifest lists no students")
	}

	base := filepath.Dir(path)
	for i := range m.Students {
		if m.Students[i].RollNumber == "" {
			return nil, fmt.Errorf("manifest entry %d has no roll_number", i)
		}
		for j, img := range m.Students[i].Images {
			if !filepath.IsAbs(img) {
				m.Students[i].Images[j] = filepath.Join(base, img)
			}
		}
	}
	return &m, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	manifest, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	startTime := time.Now()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(manifest.Students),
			progressbar.OptionSetDescription("Registering students"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("students"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	outputs := make([]RegisterOutput, len(manifest.Students))
	var failed int64
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, student := range manifest.Students {
		wg.Add(1)
		go func(i int, student ManifestStudent) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outputs[i] = importStudent(ctx, a.service, student)
			if outputs[i].Error != "" {
				atomic.AddInt64(&failed, 1)
			}

			if bar != nil {
				bar.Add(1)
			}
		}(i, student)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := ImportResult{
		Total:         len(manifest.Students),
		Registered:    len(manifest.Students) - int(failed),
		Failed:        int(failed),
		Students:      outputs,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nImport complete!")
	fmt.Printf("  Registered: %d\n", result.Registered)
	if result.Failed > 0 {
		fmt.Printf("  Failed:     %d\n", result.Failed)
		for _, o := range outputs {
			if o.Error != "" {
				fmt.Printf("    %s: %s\n", o.RollNumber, o.Error)
			}
		}
	}
	fmt.Printf("  Duration:   %s\n", result.DurationHuman)
	return nil
}

// importStudent registers one manifest entry. Errors are reported in the output.
func importStudent(ctx context.Context, svc *attendance.Service, student ManifestStudent) RegisterOutput {
	failed := RegisterOutput{RollNumber: student.RollNumber}

	images, err := readImageFiles(student.Images)
	if err != nil {
		failed.Error = err.Error()
		return failed
	}

	res, err := svc.Register(ctx, attendance.RegisterRequest{
		Name:       student.Name,
		RollNumber: student.RollNumber,
		Year:       student.Year,
		Session:    student.Session,
		Images:     images,
	})
	if err != nil {
		failed.Error = err.Error()
		return failed
	}
	return toRegisterOutput(student.RollNumber, res)
}
