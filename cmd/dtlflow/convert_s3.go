package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sykersystems/dtlflow/internal/dtlproc"
	"github.com/sykersystems/dtlflow/internal/logging"
)

var (
	s3Bucket   string
	s3Prefix   string
	s3Region   string
	s3Output   string
	s3Format   string
	s3Label    string
	s3Timezone string
	s3LogLevel string
)

var convertS3Cmd = &cobra.Command{
	Use:   "convert-s3",
	Short: "Convert .dtl files stored in an S3 bucket",
	Long: `Download .dtl files and ZIP archives from an S3 bucket into a local
staging tree and convert them into a single spreadsheet archive.

Credentials come from the standard AWS chain (environment variables,
IAM roles, profiles).

Examples:
  dtlflow convert-s3 --bucket telemetry --prefix site-a/ -o site-a.zip
  dtlflow convert-s3 --bucket telemetry --region eu-west-1 -o out.zip --format csv`,
	RunE: runConvertS3,
}

func init() {
	convertS3Cmd.Flags().StringVar(&s3Bucket, "bucket", "", "S3 bucket name (required)")
	convertS3Cmd.Flags().StringVar(&s3Prefix, "prefix", "", "S3 key prefix filter")
	convertS3Cmd.Flags().StringVar(&s3Region, "region", "us-east-1", "AWS region")
	convertS3Cmd.Flags().StringVarP(&s3Output, "output", "o", "", "output archive path (required)")
	convertS3Cmd.Flags().StringVar(&s3Format, "format", "xlsx", "tabular output format: xlsx, csv")
	convertS3Cmd.Flags().StringVar(&s3Label, "label", "", "archive label")
	convertS3Cmd.Flags().StringVar(&s3Timezone, "timezone", "UTC", "IANA time zone for decoded timestamps")
	convertS3Cmd.Flags().StringVar(&s3LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	convertS3Cmd.MarkFlagRequired("bucket")
	convertS3Cmd.MarkFlagRequired("output")
}

func runConvertS3(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cliConfig := &CLIConfig{
		Output:   s3Output,
		Format:   s3Format,
		Label:    s3Label,
		Timezone: s3Timezone,
		LogLevel: s3LogLevel,
	}
	if err := cliConfig.Validate(); err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	logger, _ := logging.New(".", "", cliConfig.LogLevel)

	client, err := dtlproc.NewAWSS3Client(ctx, s3Region)
	if err != nil {
		return err
	}

	stagingDir, err := os.MkdirTemp("", "dtlflow-s3-*")
	if err != nil {
		return fmt.Errorf("could not create staging directory: %v", err)
	}
	defer os.RemoveAll(stagingDir)

	fetcher := dtlproc.NewObjectFetcher(client, logger)
	localPaths, err := fetcher.FetchAll(ctx, s3Bucket, s3Prefix, stagingDir)
	if err != nil {
		return err
	}

	// Route downloads through the upload path so fetched ZIP archives
	// get extracted like any other upload.
	uploads, err := readInputFiles(localPaths)
	if err != nil {
		return err
	}

	processor := dtlproc.NewProcessor(dtlproc.DefaultRegistry(), cliConfig.Location(), logger)
	result, err := processor.ProcessUploads(uploads, dtlproc.Options{
		ArchiveLabel: cliConfig.Label,
		Format:       cliConfig.Format,
	})
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
