package cmd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jewelcraft/sketchprep/internal/pipeline"
	"github.com/spf13/cobra"
)

// stepManifestEntry records where one pipeline step landed on disk.
type stepManifestEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	File        string `json:"file"`
}

// processCmd represents the process command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the preprocessing pipeline on sketch image files",
	Long: `Run the full preprocessing pipeline on one or more sketch images and
write every labeled step as a JPEG into an output directory, one
subdirectory per input file, together with a steps.json manifest.

Supported formats: anything OpenCV can decode (JPEG, PNG, BMP, TIFF, ...)

Examples:
  sketchprep process sketch.jpg
  sketchprep process *.png --output steps/
  sketchprep process sketch.jpg --manifest=false`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()

		outputDir := cfg.Output.Dir
		if cmd.Flags().Changed("output") {
			outputDir, _ = cmd.Flags().GetString("output")
		}

		manifest := cfg.Output.Manifest
		if cmd.Flags().Changed("manifest") {
			manifest, _ = cmd.Flags().GetBool("manifest")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Processing %d image(s)\n", len(args)); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}

		for _, path := range args {
			if err := processFile(cmd, path, outputDir, manifest); err != nil {
				return fmt.Errorf("processing %s: %w", path, err)
			}
		}
		return nil
	},
}

// processFile runs the pipeline on one file and writes its steps to
// <outputDir>/<basename-without-ext>/.
func processFile(cmd *cobra.Command, path, outputDir string, manifest bool) error {
	imgData, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied CLI input path
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	steps, err := pipeline.Run(imgData)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Join(outputDir, base)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries := make([]stepManifestEntry, 0, len(steps))
	for i, st := range steps {
		data, err := decodeDataURL(st.Image)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		name := stepFilename(i)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("write step image: %w", err)
		}
		entries = append(entries, stepManifestEntry{
			Name:        st.Name,
			Description: st.Description,
			File:        name,
		})
	}

	if manifest {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal manifest: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "steps.json"), data, 0o600); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %d step(s) to %s\n", path, len(steps), dir)
	return err
}

// stepFilename names step images by their position so directory listings
// keep the pipeline order.
func stepFilename(index int) string {
	return fmt.Sprintf("step_%02d.jpg", index+1)
}

// decodeDataURL strips the MIME prefix from a base64 data URL and decodes
// the payload.
func decodeDataURL(dataURL string) ([]byte, error) {
	_, payload, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, errors.New("not a base64 data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringP("output", "o", "steps", "output directory for step images")
	processCmd.Flags().Bool("manifest", true, "write a steps.json manifest next to the step images")
}
