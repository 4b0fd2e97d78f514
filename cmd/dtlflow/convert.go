package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sykersystems/dtlflow/internal/dtlproc"
	"github.com/sykersystems/dtlflow/internal/logging"
)

var (
	convertInputs   []string
	convertDir      string
	convertOutput   string
	convertFormat   string
	convertLabel    string
	convertTimezone string
	convertColumns  []string
	convertPerFile  bool
	convertResume   bool
	convertLogLevel string
	configFile      string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert .dtl files into a spreadsheet archive",
	Long: `Convert Syker .dtl telemetry logs (or ZIP archives of them) into per-type
spreadsheet files bundled into a single ZIP archive.

Examples:
  # Convert a directory tree into one archive
  dtlflow convert -d /data/site-a -o site-a.zip

  # Convert individual files/archives as one batch
  dtlflow convert -i upload.zip -i TrendTemperature.dtl -o out/

  # One archive per input, skipping inputs unchanged since the last run
  dtlflow convert -i a.zip -i b.zip -o out/ --per-file --resume

  # CSV output with a custom value header
  dtlflow convert -d /data -o out.zip --format csv --columns value="Temp (C)"`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringSliceVarP(&convertInputs, "input", "i", nil, "input .dtl file or ZIP archive (repeatable)")
	convertCmd.Flags().StringVarP(&convertDir, "dir", "d", "", "directory tree to convert")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output archive path, or directory with --per-file")
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "tabular output format: xlsx, csv (default xlsx)")
	convertCmd.Flags().StringVar(&convertLabel, "label", "", "archive label (default Syker_Processed_Data)")
	convertCmd.Flags().StringVar(&convertTimezone, "timezone", "", "IANA time zone for decoded timestamps (default UTC)")
	convertCmd.Flags().StringSliceVar(&convertColumns, "columns", nil, "column header overrides, key=value (keys: date, time, ms, value)")
	convertCmd.Flags().BoolVar(&convertPerFile, "per-file", false, "produce one archive per input file")
	convertCmd.Flags().BoolVar(&convertResume, "resume", false, "with --per-file: skip inputs unchanged since the last run")
	convertCmd.Flags().StringVar(&convertLogLevel, "log-level", "", "log level: debug, info, warn, error")
	convertCmd.Flags().StringVar(&configFile, "config", "", "JSON config file")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cliConfig, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}
	applyConvertFlags(cmd, cliConfig)

	if err := cliConfig.Validate(); err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	if convertDir == "" && len(convertInputs) == 0 {
		return fmt.Errorf("one of --dir or --input must be specified")
	}
	if convertDir != "" && len(convertInputs) > 0 {
		return fmt.Errorf("--dir and --input are mutually exclusive")
	}
	if cliConfig.Output == "" {
		return fmt.Errorf("--output must be specified")
	}
	if convertResume && !convertPerFile {
		return fmt.Errorf("--resume requires --per-file")
	}
	if convertPerFile && convertDir != "" {
		return fmt.Errorf("--per-file requires --input files")
	}

	logger, logFile := logging.New(".", cliConfig.LogFile, cliConfig.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	overrides, err := parseColumnOverrides(convertColumns)
	if err != nil {
		return err
	}
	if overrides == nil {
		overrides = cliConfig.Columns
	}

	opts := dtlproc.Options{
		CustomColumns: overrides,
		ArchiveLabel:  cliConfig.Label,
		Format:        cliConfig.Format,
	}

	processor := dtlproc.NewProcessor(dtlproc.DefaultRegistry(), cliConfig.Location(), logger)

	if convertPerFile {
		return convertEachInput(processor, cliConfig.Output, opts, logger)
	}

	var result *dtlproc.ProcessingResult
	if convertDir != "" {
		result, err = processor.ProcessDirectory(convertDir, opts)
	} else {
		uploads, readErr := readInputFiles(convertInputs)
		if readErr != nil {
			return readErr
		}
		result, err = processor.ProcessUploads(uploads, opts)
	}
	if err != nil {
		return err
	}

	outPath := cliConfig.Output
	if isDirectory(outPath) {
		outPath = filepath.Join(outPath, result.ArchiveFilename)
	}
	if err := os.WriteFile(outPath, result.ArchiveBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output archive: %v", err)
	}

	printResult(result, outPath)
	return nil
}

// convertEachInput converts every input independently, producing one
// archive per input in the output directory. With --resume, inputs
// whose size and mtime match the recorded state are skipped.
func convertEachInput(processor *dtlproc.Processor, outputDir string, opts dtlproc.Options, logger *slog.Logger) error {
	tracker, err := dtlproc.NewStateTracker(outputDir, logger)
	if err != nil {
		return err
	}
	defer tracker.Close()

	if convertResume {
		if err := tracker.Load(); err != nil {
			return err
		}
	}

	converted, skipped, failed := 0, 0, 0
	for _, input := range convertInputs {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("cannot access input %s: %v", input, err)
		}

		if convertResume && !tracker.ShouldConvert(input, info) {
			logger.Info("Skipping unchanged input.", "input", input)
			skipped++
			continue
		}

		content, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("cannot read input %s: %v", input, err)
		}

		fileOpts := opts
		if fileOpts.ArchiveLabel == "" {
			base := filepath.Base(input)
			fileOpts.ArchiveLabel = strings.TrimSuffix(base, filepath.Ext(base))
		}

		result, err := processor.ProcessUploads([]dtlproc.UploadedItem{
			{Filename: filepath.Base(input), Content: content},
		}, fileOpts)
		if err != nil {
			logger.Warn("Input failed to convert, continuing.", "input", input, "error", err)
			tracker.MarkFailed(input, err.Error())
			failed++
			continue
		}

		outPath := filepath.Join(outputDir, result.ArchiveFilename)
		if err := os.WriteFile(outPath, result.ArchiveBytes, 0644); err != nil {
			return fmt.Errorf("failed to write output archive: %v", err)
		}

		tracker.MarkConverted(input, info, result.ArchiveFilename)
		converted++
		fmt.Printf("✓ %s -> %s (%d recognized, %d unrecognized)\n",
			input, outPath, result.Summary.RecognizedFiles, result.Summary.UnrecognizedFiles)
	}

	if err := tracker.Save(); err != nil {
		return err
	}

	fmt.Printf("\nConverted: %d, Skipped: %d, Failed: %d\n", converted, skipped, failed)
	if failed > 0 && converted == 0 {
		return fmt.Errorf("all inputs failed to convert")
	}
	return nil
}

func applyConvertFlags(cmd *cobra.Command, config *CLIConfig) {
	if cmd.Flags().Changed("output") {
		config.Output = convertOutput
	}
	if cmd.Flags().Changed("format") {
		config.Format = convertFormat
	}
	if cmd.Flags().Changed("label") {
		config.Label = convertLabel
	}
	if cmd.Flags().Changed("timezone") {
		config.Timezone = convertTimezone
	}
	if cmd.Flags().Changed("log-level") {
		config.LogLevel = convertLogLevel
	}
}

func readInputFiles(paths []string) ([]dtlproc.UploadedItem, error) {
	uploads := make([]dtlproc.UploadedItem, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read input %s: %v", path, err)
		}
		uploads = append(uploads, dtlproc.UploadedItem{Filename: filepath.Base(path), Content: content})
	}
	return uploads, nil
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func printResult(result *dtlproc.ProcessingResult, outPath string) {
	fmt.Printf("Archive written: %s\n", outPath)
	fmt.Printf("Recognized files:   %d\n", result.Summary.RecognizedFiles)
	fmt.Printf("Unrecognized files: %d\n", result.Summary.UnrecognizedFiles)
	for fileType, count := range result.Summary.FilesByType {
		fmt.Printf("  %-12s %d\n", fileType, count)
	}
	if len(result.Summary.EmptyFiles) > 0 {
		fmt.Printf("Empty files: %s\n", strings.Join(result.Summary.EmptyFiles, ", "))
	}
	if len(result.Summary.FailedFiles) > 0 {
		fmt.Printf("Failed files: %s\n", strings.Join(result.Summary.FailedFiles, ", "))
	}
}
