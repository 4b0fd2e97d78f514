package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display detailed version information including build details and runtime information.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("Syker DTL File Converter\n")
	fmt.Printf("========================\n\n")

	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", commit)
	fmt.Printf("Build Date: %s\n", date)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)

	fmt.Printf("\nFeatures:\n")
	fmt.Printf("  ✓ 14 recognized .dtl dataset types\n")
	fmt.Printf("  ✓ XLSX and CSV tabular output\n")
	fmt.Printf("  ✓ ZIP upload extraction with path sanitation\n")
	fmt.Printf("  ✓ Directory, file, and S3 bucket sources\n")
	fmt.Printf("  ✓ Resumable per-file conversion state\n")
	fmt.Printf("  ✓ HTTP service mode\n")
}
