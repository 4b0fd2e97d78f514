package dtlproc

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterFactory_CreateWriter(t *testing.T) {
	factory := NewWriterFactory()

	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"", "xlsx", false},
		{"xlsx", "xlsx", false},
		{"XLSX", "xlsx", false},
		{"csv", "csv", false},
		{"pdf", "", true},
		{"parquet", "", true},
	}

	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			writer, err := factory.CreateWriter(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("CreateWriter() error = nil, want config error")
				}
				var pe *PipelineError
				if !errors.As(err, &pe) || pe.Kind != KindConfig {
					t.Errorf("CreateWriter() error = %v, want KindConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateWriter() error = %v", err)
			}
			if writer.Extension() != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", writer.Extension(), tt.wantExt)
			}
		})
	}
}

func sampleTable(fileType string) *DecodedTable {
	return &DecodedTable{
		FileType:         fileType,
		OriginalFilename: "SiteA_" + fileType + ".dtl",
		BaseFilename:     "SiteA_" + fileType,
		Status:           StatusPopulated,
		Records: []DecodedRecord{
			{Date: "2021-03-04", Time: "05:06:07", Milliseconds: 250, Value: RecordValue{Encoding: EncodingFloat, Float: 3.5}},
			{Date: "2021-03-05", Time: "06:07:08", Milliseconds: 0, Value: RecordValue{Encoding: EncodingFloat, Float: 4.5}},
		},
	}
}

func TestExporter_ColumnHeaders(t *testing.T) {
	exporter := NewExporter(DefaultRegistry(), nil)

	tests := []struct {
		name      string
		fileType  string
		overrides map[string]string
		want      []string
	}{
		{
			name:     "co2days defaults",
			fileType: "co2days",
			want:     []string{"Date", "Time", "Milliseconds", "CO2 Emissions Prevented (kg)"},
		},
		{
			name:     "dooropen defaults",
			fileType: "dooropen",
			want:     []string{"Date", "Time", "Milliseconds", "Instances of Door Openings"},
		},
		{
			name:     "unknown type falls back",
			fileType: "nope",
			want:     []string{"Date", "Time", "Milliseconds", "Value"},
		},
		{
			name:      "value override",
			fileType:  "trendtemp",
			overrides: map[string]string{ColValue: "Temp (C)"},
			want:      []string{"Date", "Time", "Milliseconds", "Temp (C)"},
		},
		{
			name:      "unknown keys and blank labels ignored",
			fileType:  "co2days",
			overrides: map[string]string{"bogus": "X", ColDate: "  "},
			want:      []string{"Date", "Time", "Milliseconds", "CO2 Emissions Prevented (kg)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exporter.columnHeaders(tt.fileType, tt.overrides)
			if len(got) != len(tt.want) {
				t.Fatalf("columnHeaders() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("header[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExporter_ExportCSV(t *testing.T) {
	outputRoot := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		t.Fatal(err)
	}

	exporter := NewExporter(DefaultRegistry(), nil)
	decoded := map[string]*DecodedTable{
		"SiteA_co2days": sampleTable("co2days"),
	}

	artifacts, filesByType, err := exporter.Export(decoded, outputRoot, &CSVTableWriter{}, nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(artifacts) != 1 {
		t.Fatalf("len(artifacts) = %d, want 1", len(artifacts))
	}
	if artifacts[0].RecordCount != 2 {
		t.Errorf("artifact record count = %d, want 2", artifacts[0].RecordCount)
	}
	if filesByType["co2days"] != 1 {
		t.Errorf("filesByType[co2days] = %d, want 1", filesByType["co2days"])
	}

	outPath := filepath.Join(outputRoot, "co2days", "SiteA_co2days.csv")
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading exported CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("CSV row count = %d, want 3 (header + 2 records)", len(rows))
	}
	if rows[0][3] != "CO2 Emissions Prevented (kg)" {
		t.Errorf("value header = %q", rows[0][3])
	}
	if rows[1][0] != "2021-03-04" || rows[1][3] != "3.5" {
		t.Errorf("first data row = %v", rows[1])
	}
}

func TestExporter_EmptyTableStillExports(t *testing.T) {
	outputRoot := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		t.Fatal(err)
	}

	table := &DecodedTable{
		FileType:         "co2days",
		OriginalFilename: "Empty_DataLogCO2Days.dtl",
		BaseFilename:     "Empty_DataLogCO2Days",
		Status:           StatusEmpty,
	}

	exporter := NewExporter(DefaultRegistry(), nil)
	artifacts, _, err := exporter.Export(map[string]*DecodedTable{"Empty_DataLogCO2Days": table}, outputRoot, &CSVTableWriter{}, nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].RecordCount != 0 {
		t.Errorf("artifacts = %+v, want one zero-count artifact", artifacts)
	}

	outPath := filepath.Join(outputRoot, "co2days", "Empty_DataLogCO2Days.csv")
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("empty table file missing: %v", err)
	}
}
