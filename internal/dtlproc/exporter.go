package dtlproc

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Canonical column keys. Custom header overrides are keyed by these.
const (
	ColDate   = "date"
	ColTime   = "time"
	ColMillis = "ms"
	ColValue  = "value"
)

// TableWriter renders one decoded table to a tabular file. The concrete
// spreadsheet library stays behind this interface.
type TableWriter interface {
	WriteTable(path string, headers []string, table *DecodedTable) error
	Extension() string
}

// WriterFactory creates table writers by format name.
type WriterFactory struct{}

// NewWriterFactory creates a new WriterFactory
func NewWriterFactory() *WriterFactory {
	return &WriterFactory{}
}

// CreateWriter returns a writer for the requested format. An unsupported
// format is a fatal configuration error for the whole request.
func (wf *WriterFactory) CreateWriter(format string) (TableWriter, error) {
	switch strings.ToLower(format) {
	case "", "xlsx":
		return &XLSXWriter{}, nil
	case "csv":
		return &CSVTableWriter{}, nil
	default:
		return nil, NewConfigError("unsupported tabular output format: %s", format)
	}
}

// XLSXWriter renders tables as Excel workbooks via excelize.
type XLSXWriter struct{}

// Extension returns the output file extension without the dot.
func (xw *XLSXWriter) Extension() string { return "xlsx" }

// WriteTable writes headers plus one row per record to a new workbook.
func (xw *XLSXWriter) WriteTable(path string, headers []string, table *DecodedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range table.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell coordinates: %w", err)
		}
		row := []any{record.Date, record.Time, record.Milliseconds, record.Value.Cell()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// CSVTableWriter renders tables as CSV files.
type CSVTableWriter struct{}

// Extension returns the output file extension without the dot.
func (cw *CSVTableWriter) Extension() string { return "csv" }

// WriteTable writes headers plus one row per record.
func (cw *CSVTableWriter) WriteTable(path string, headers []string, table *DecodedTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV output file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range table.Records {
		row := []string{record.Date, record.Time, strconv.Itoa(record.Milliseconds), record.Value.String()}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// Exporter renders decoded tables into a per-type folder tree.
type Exporter struct {
	registry Registry
	logger   *slog.Logger
}

// NewExporter creates an Exporter for the given registry.
func NewExporter(registry Registry, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{registry: registry, logger: logger}
}

// columnHeaders resolves the four output headers for a file type,
// applying caller overrides on top of the defaults.
func (e *Exporter) columnHeaders(fileType string, overrides map[string]string) []string {
	valueLabel := "Value"
	if def, ok := e.registry.Lookup(fileType); ok {
		valueLabel = def.ValueLabel
	}

	headers := map[string]string{
		ColDate:   "Date",
		ColTime:   "Time",
		ColMillis: "Milliseconds",
		ColValue:  valueLabel,
	}
	for key, label := range overrides {
		if _, ok := headers[key]; ok && strings.TrimSpace(label) != "" {
			headers[key] = label
		}
	}

	return []string{headers[ColDate], headers[ColTime], headers[ColMillis], headers[ColValue]}
}

// Export writes one tabular file per decoded table under
// outputRoot/<file_type>/<base>.<ext> and returns the manifest plus
// per-type counts. Artifact paths are reported relative to the parent of
// outputRoot so they match the layout inside the final archive.
func (e *Exporter) Export(decoded map[string]*DecodedTable, outputRoot string, writer TableWriter, overrides map[string]string) ([]ExportedArtifact, map[string]int, error) {
	filesByType := make(map[string]int)
	artifacts := make([]ExportedArtifact, 0, len(decoded))

	// Deterministic export order.
	bases := make([]string, 0, len(decoded))
	for base := range decoded {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	for _, base := range bases {
		table := decoded[base]

		typeFolder := filepath.Join(outputRoot, table.FileType)
		if err := os.MkdirAll(typeFolder, 0755); err != nil {
			return nil, nil, NewInternalError(err, "could not create type folder %s", table.FileType)
		}

		outPath := filepath.Join(typeFolder, base+"."+writer.Extension())
		headers := e.columnHeaders(table.FileType, overrides)
		if err := writer.WriteTable(outPath, headers, table); err != nil {
			return nil, nil, NewInternalError(err, "could not render table for %s", table.OriginalFilename)
		}

		filesByType[table.FileType]++

		rel, err := filepath.Rel(filepath.Dir(outputRoot), outPath)
		if err != nil {
			rel = outPath
		}
		artifacts = append(artifacts, ExportedArtifact{
			FileType:     table.FileType,
			RelativePath: filepath.ToSlash(rel),
			RecordCount:  table.RecordCount(),
		})

		e.logger.Debug("Exported table.",
			"file_type", table.FileType, "path", outPath, "records", table.RecordCount())
	}

	return artifacts, filesByType, nil
}
