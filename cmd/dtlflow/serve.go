package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sykersystems/dtlflow/internal/dtlproc"
	"github.com/sykersystems/dtlflow/internal/logging"
	"github.com/sykersystems/dtlflow/internal/server"
)

var (
	serveAddr     string
	serveTimezone string
	serveLogLevel string
	serveLogFile  string
	serveConfig   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DTL conversion HTTP service",
	Long: `Run an HTTP service that accepts multipart uploads of .dtl files and ZIP
archives on POST /process and responds with the converted ZIP archive.

Form fields:
  files          one or more uploaded files (required)
  archive_label  label for the output archive
  format         xlsx (default) or csv
  columns        JSON object of column header overrides

Examples:
  dtlflow serve --addr :8080
  dtlflow serve --addr 127.0.0.1:9000 --timezone Europe/London`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVar(&serveTimezone, "timezone", "", "IANA time zone for decoded timestamps (default UTC)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "optional log file, in addition to stdout")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "JSON config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cliConfig, err := LoadConfig(serveConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}
	if cmd.Flags().Changed("addr") {
		cliConfig.Addr = serveAddr
	}
	if cmd.Flags().Changed("timezone") {
		cliConfig.Timezone = serveTimezone
	}
	if cmd.Flags().Changed("log-level") {
		cliConfig.LogLevel = serveLogLevel
	}
	if cmd.Flags().Changed("log-file") {
		cliConfig.LogFile = serveLogFile
	}

	if err := cliConfig.Validate(); err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	logger, logFile := logging.New(".", cliConfig.LogFile, cliConfig.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	processor := dtlproc.NewProcessor(dtlproc.DefaultRegistry(), cliConfig.Location(), logger)
	srv := server.NewServer(processor, logger)

	httpServer := &http.Server{
		Addr:              cliConfig.Addr,
		Handler:           srv.ServeMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting DTL conversion service.", "addr", cliConfig.Addr, "timezone", cliConfig.Timezone)
	return httpServer.ListenAndServe()
}
