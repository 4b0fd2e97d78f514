package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "dtlflow",
	Short: "Syker DTL file converter",
	Long: `dtlflow converts proprietary Syker .dtl telemetry logs (refrigeration and
waste-monitoring hardware) into spreadsheet workbooks bundled into a single
ZIP archive.

Features:
  - Recursive discovery and classification of 14 .dtl dataset types
  - Fixed-width binary packet decoding (integer and float encodings)
  - XLSX and CSV tabular output with per-type column labels
  - ZIP upload extraction with path-traversal neutralization
  - Conversion of whole directory trees or individual files
  - S3 bucket sources with resumable per-file state
  - An HTTP service mode for browser uploads

Examples:
  dtlflow convert -d /data/site-a -o site-a.zip
  dtlflow convert -i upload.zip --label "Site A" -o out/
  dtlflow convert-s3 --bucket telemetry --prefix site-a/ -o site-a.zip
  dtlflow serve --addr :8080
  dtlflow info /data/site-a/DataLogCO2Days.dtl
  dtlflow version`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Syker DTL file converter v%s\n", version)
		fmt.Println("Use 'dtlflow --help' for available commands")
		fmt.Println("Use 'dtlflow convert --help' for conversion options")
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(convertS3Cmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
