package dtlproc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Processor drives the full pipeline: materialize → discover → decode →
// export → archive. One processing request equals one temporary
// directory and one archive output; the processor itself holds no
// mutable state beyond the injected registry, so independent requests
// can run it concurrently.
type Processor struct {
	registry      Registry
	loc           *time.Location
	logger        *slog.Logger
	writerFactory *WriterFactory
	decoder       *FileDecoder
}

// NewProcessor creates a Processor with the given registry. Timestamps
// are rendered in loc (UTC when nil).
func NewProcessor(registry Registry, loc *time.Location, logger *slog.Logger) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		registry:      registry,
		loc:           loc,
		logger:        logger,
		writerFactory: NewWriterFactory(),
		decoder:       NewFileDecoder(loc, logger),
	}
}

// ProcessUploads materializes an uploaded batch into a scoped temporary
// tree and runs the directory pipeline over it. The temporary tree is
// removed on every exit path.
func (p *Processor) ProcessUploads(uploads []UploadedItem, opts Options) (*ProcessingResult, error) {
	if len(uploads) == 0 {
		return nil, NewInputError("at least one file must be uploaded for processing")
	}

	tempDir, err := os.MkdirTemp("", "dtlflow-*")
	if err != nil {
		return nil, NewInternalError(err, "could not create staging directory")
	}
	defer os.RemoveAll(tempDir)

	uploadsRoot := filepath.Join(tempDir, "uploads")
	if err := os.MkdirAll(uploadsRoot, 0755); err != nil {
		return nil, NewInternalError(err, "could not create uploads root")
	}

	materializer := NewMaterializer(p.logger)
	if err := materializer.Materialize(uploads, uploadsRoot); err != nil {
		return nil, err
	}

	return p.ProcessDirectory(uploadsRoot, opts)
}

// ProcessDirectory runs discovery, decode, export and archiving over an
// existing directory tree. Zero recognized files and a missing or
// non-directory root are input errors surfaced before any export work;
// an unsupported output format is a configuration error surfaced before
// any per-file work.
func (p *Processor) ProcessDirectory(directory string, opts Options) (*ProcessingResult, error) {
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return nil, NewInputError("directory %q does not exist or is not a directory", directory)
	}

	writer, err := p.writerFactory.CreateWriter(opts.Format)
	if err != nil {
		return nil, err
	}

	scanner := NewScanner(p.registry, p.logger)
	discovery, err := scanner.Scan(directory)
	if err != nil {
		return nil, err
	}
	if discovery.TotalRecognized == 0 {
		return nil, NewInputError("no recognized .dtl files were found in the uploaded data")
	}

	stats := NewProcessingStats()
	decoded := p.decoder.DecodeAll(discovery, stats)

	label := SanitizeArchiveLabel(opts.ArchiveLabel)
	folderName := fmt.Sprintf("%s-Converted%s", label, time.Now().In(p.loc).Format("20060102"))

	exportRoot, err := os.MkdirTemp("", "dtlflow-export-*")
	if err != nil {
		return nil, NewInternalError(err, "could not create export directory")
	}
	defer os.RemoveAll(exportRoot)

	outputRoot := filepath.Join(exportRoot, folderName)
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return nil, NewInternalError(err, "could not create output root")
	}

	exporter := NewExporter(p.registry, p.logger)
	artifacts, filesByType, err := exporter.Export(decoded, outputRoot, writer, opts.CustomColumns)
	if err != nil {
		return nil, err
	}

	archiveBytes, err := BuildArchive(outputRoot, folderName)
	if err != nil {
		return nil, err
	}

	var emptyFiles, failedFiles []string
	for _, table := range decoded {
		switch table.Status {
		case StatusFailed:
			failedFiles = append(failedFiles, table.OriginalFilename)
		case StatusEmpty:
			emptyFiles = append(emptyFiles, table.OriginalFilename)
		}
	}

	stats.UpdateDuration()
	p.logger.Info("Processing complete.",
		"archive", folderName+".zip",
		"recognized", discovery.TotalRecognized,
		"unrecognized", discovery.UnrecognizedCount,
		"stats", stats.String())

	return &ProcessingResult{
		ArchiveFilename: folderName + ".zip",
		ArchiveBytes:    archiveBytes,
		Summary: ProcessingSummary{
			RecognizedFiles:   discovery.TotalRecognized,
			UnrecognizedFiles: discovery.UnrecognizedCount,
			FilesByType:       filesByType,
			EmptyFiles:        emptyFiles,
			FailedFiles:       failedFiles,
		},
		ExportedFiles: artifacts,
	}, nil
}
