package dtlproc

import (
	"fmt"
	"strconv"
)

// RecordSize is the fixed size of one binary packet in a DTL record area.
const RecordSize = 9

// UploadedItem represents a single file received from an HTTP upload or
// read from disk by the CLI. Content may itself be a ZIP archive.
type UploadedItem struct {
	Filename string
	Content  []byte
}

// DiscoveredFile is one recognized .dtl file found by the scanner.
type DiscoveredFile struct {
	Path     string
	Filename string
	Type     FileTypeDefinition
}

// Discovery holds the outcome of scanning a directory tree for
// recognized .dtl files, grouped by file type identifier.
type Discovery struct {
	TypeCounts        map[string]int
	TotalRecognized   int
	UnrecognizedCount int
	FoundFiles        map[string][]DiscoveredFile
}

// TotalFiles returns the number of .dtl files seen, recognized or not.
func (d *Discovery) TotalFiles() int {
	return d.TotalRecognized + d.UnrecognizedCount
}

// RecordValue carries one decoded value together with its encoding, so
// integer counts render as integers and float measurements as floats.
type RecordValue struct {
	Encoding ValueEncoding
	Int      int32
	Float    float32
}

// Cell returns the value in its native type for spreadsheet cells.
func (v RecordValue) Cell() any {
	if v.Encoding == EncodingInt {
		return v.Int
	}
	return v.Float
}

// String renders the value for text output formats.
func (v RecordValue) String() string {
	if v.Encoding == EncodingInt {
		return strconv.FormatInt(int64(v.Int), 10)
	}
	return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
}

// DecodedRecord is one observation decoded from a 9-byte packet. Date
// and Time are fixed-width, zero-padded strings rendered in a single
// pipeline-wide time zone, which makes lexicographic ordering correct.
type DecodedRecord struct {
	Date         string
	Time         string
	Milliseconds int
	Value        RecordValue
}

// DecodeStatus tags how a file decode ended. Degradation is explicit in
// the type rather than inferred from an empty record slice.
type DecodeStatus int

const (
	// StatusPopulated means the file validated and produced records.
	StatusPopulated DecodeStatus = iota
	// StatusEmpty means the file was structurally invalid or simply
	// contained no decodable records; it is reported, not fatal.
	StatusEmpty
	// StatusFailed means the file looked valid but could not be read.
	StatusFailed
)

// String returns the string representation of DecodeStatus
func (s DecodeStatus) String() string {
	switch s {
	case StatusPopulated:
		return "populated"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DecodedTable is the time-ordered decode result for one source file.
// It is built once and read-only afterward.
type DecodedTable struct {
	Records          []DecodedRecord
	FileType         string
	SourcePath       string
	OriginalFilename string
	BaseFilename     string
	Status           DecodeStatus
}

// RecordCount returns the number of decoded rows.
func (t *DecodedTable) RecordCount() int {
	return len(t.Records)
}

// IsEmpty reports whether the table has no rows.
func (t *DecodedTable) IsEmpty() bool {
	return len(t.Records) == 0
}

// ExportedArtifact describes one rendered tabular file inside the
// output tree.
type ExportedArtifact struct {
	FileType     string `json:"file_type"`
	RelativePath string `json:"relative_path"`
	RecordCount  int    `json:"record_count"`
}

// ProcessingSummary holds the statistics returned alongside the archive.
type ProcessingSummary struct {
	RecognizedFiles   int            `json:"recognized_files"`
	UnrecognizedFiles int            `json:"unrecognized_files"`
	FilesByType       map[string]int `json:"files_by_type"`
	EmptyFiles        []string       `json:"empty_files"`
	FailedFiles       []string       `json:"failed_files"`
}

// ProcessingResult is the terminal output of one pipeline run. The
// caller owns it exclusively once returned.
type ProcessingResult struct {
	ArchiveFilename string             `json:"archive_filename"`
	ArchiveBytes    []byte             `json:"-"`
	Summary         ProcessingSummary  `json:"summary"`
	ExportedFiles   []ExportedArtifact `json:"exported_files"`
}

// Options carries the caller-supplied knobs for one processing run.
type Options struct {
	// CustomColumns overrides default column headers, keyed by the
	// canonical column keys (ColDate, ColTime, ColMillis, ColValue).
	CustomColumns map[string]string
	// ArchiveLabel names the output container; sanitized before use,
	// falling back to a fixed default when absent or fully stripped.
	ArchiveLabel string
	// Format selects the tabular output format ("xlsx" or "csv");
	// empty means xlsx.
	Format string
}
