package dtlproc

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ValidateFile checks that a candidate file's size is consistent with
// the declared header length and the fixed record size. It fails closed:
// any I/O problem is a validation failure, never an error.
func ValidateFile(path string, headerLength int64) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if info.Size() < headerLength {
		return false
	}
	return (info.Size()-headerLength)%RecordSize == 0
}

// FileOpener opens one source file for decoding. The default is
// os.Open; tests substitute openers that fail mid-read.
type FileOpener func(path string) (io.ReadSeekCloser, error)

func defaultFileOpener(path string) (io.ReadSeekCloser, error) {
	return os.Open(path)
}

// FileDecoder turns discovered .dtl files into time-ordered tables.
type FileDecoder struct {
	loc    *time.Location
	logger *slog.Logger
	open   FileOpener
}

// NewFileDecoder creates a FileDecoder rendering timestamps in loc.
func NewFileDecoder(loc *time.Location, logger *slog.Logger) *FileDecoder {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileDecoder{loc: loc, logger: logger, open: defaultFileOpener}
}

// DecodeFile decodes one discovered file into a DecodedTable.
//
// A file that fails size validation degrades to an empty table
// (StatusEmpty); a file that validates but cannot be read degrades to
// StatusFailed. Neither is an error for the batch. Unparseable packets
// are dropped, a trailing partial record is discarded, and the result is
// sorted ascending by (date, time).
func (fd *FileDecoder) DecodeFile(file DiscoveredFile) *DecodedTable {
	table := &DecodedTable{
		FileType:         file.Type.ID,
		SourcePath:       file.Path,
		OriginalFilename: file.Filename,
		BaseFilename:     strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)),
		Status:           StatusEmpty,
	}

	if !ValidateFile(file.Path, file.Type.HeaderLength) {
		fd.logger.Warn("File failed size validation, skipping decode.",
			"path", file.Path, "header_length", file.Type.HeaderLength)
		return table
	}

	f, err := fd.open(file.Path)
	if err != nil {
		fd.logger.Warn("Could not open validated file.", "path", file.Path, "error", err)
		table.Status = StatusFailed
		return table
	}
	defer f.Close()

	if _, err := f.Seek(file.Type.HeaderLength, io.SeekStart); err != nil {
		fd.logger.Warn("Could not seek past header.", "path", file.Path, "error", err)
		table.Status = StatusFailed
		return table
	}

	packet := make([]byte, RecordSize)
	for {
		_, err := io.ReadFull(f, packet)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Fewer than 9 bytes remain; a trailing partial record
			// is discarded silently.
			break
		}
		if err != nil {
			fd.logger.Warn("Read error mid-file, discarding partial table.",
				"path", file.Path, "offset_records", len(table.Records), "error", err)
			table.Records = nil
			table.Status = StatusFailed
			return table
		}

		if record, ok := DecodePacket(packet, file.Type.Encoding, fd.loc); ok {
			table.Records = append(table.Records, record)
		}
	}

	slices.SortStableFunc(table.Records, func(a, b DecodedRecord) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Time, b.Time)
	})

	if len(table.Records) > 0 {
		table.Status = StatusPopulated
	}
	return table
}

// DecodeAll decodes every discovered file, keyed by base filename so a
// given output path is produced at most once per run.
func (fd *FileDecoder) DecodeAll(discovery *Discovery, stats *ProcessingStats) map[string]*DecodedTable {
	decoded := make(map[string]*DecodedTable)

	for _, files := range discovery.FoundFiles {
		for _, file := range files {
			start := time.Now()
			table := fd.DecodeFile(file)
			if stats != nil {
				stats.RecordFile(table, time.Since(start))
			}
			decoded[table.BaseFilename] = table
		}
	}

	return decoded
}
