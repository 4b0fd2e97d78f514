package dtlproc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProcessor(t *testing.T) *Processor {
	t.Helper()
	return NewProcessor(DefaultRegistry(), time.UTC, nil)
}

// readArchiveEntry finds one entry by name inside the result archive.
func readArchiveEntry(t *testing.T, archiveBytes []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			var buf bytes.Buffer
			_, err = buf.ReadFrom(rc)
			require.NoError(t, err)
			return buf.Bytes()
		}
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	t.Fatalf("entry %q not found in archive, got %v", name, names)
	return nil
}

func TestProcessor_ProcessUploads_RoundTrip(t *testing.T) {
	// Three out-of-order float packets in a co2days file.
	content := make([]byte, 39)
	content = append(content, floatPacket(1614920767, 10, 2.25)...) // 2021-03-05
	content = append(content, floatPacket(1614834367, 25, 1.5)...)  // 2021-03-04
	content = append(content, floatPacket(1614834368, 0, 3.75)...)  // 2021-03-04, later

	p := testProcessor(t)
	result, err := p.ProcessUploads(
		[]UploadedItem{{Filename: "SiteA_DataLogCO2Days.dtl", Content: content}},
		Options{ArchiveLabel: "Site A!", Format: "csv"},
	)
	require.NoError(t, err)

	folder := fmt.Sprintf("Site-A-Converted%s", time.Now().UTC().Format("20060102"))
	assert.Equal(t, folder+".zip", result.ArchiveFilename)
	assert.Equal(t, 1, result.Summary.RecognizedFiles)
	assert.Equal(t, 0, result.Summary.UnrecognizedFiles)
	assert.Equal(t, map[string]int{"co2days": 1}, result.Summary.FilesByType)
	assert.Empty(t, result.Summary.EmptyFiles)
	assert.Empty(t, result.Summary.FailedFiles)

	require.Len(t, result.ExportedFiles, 1)
	assert.Equal(t, folder+"/co2days/SiteA_DataLogCO2Days.csv", result.ExportedFiles[0].RelativePath)
	assert.Equal(t, 3, result.ExportedFiles[0].RecordCount)

	entry := readArchiveEntry(t, result.ArchiveBytes, folder+"/co2days/SiteA_DataLogCO2Days.csv")
	rows, err := csv.NewReader(bytes.NewReader(entry)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Time", "Milliseconds", "CO2 Emissions Prevented (kg)"}, rows[0])

	// Chronological order restored regardless of packet order on disk.
	assert.Equal(t, []string{"2021-03-04", "05:06:07", "250", "1.5"}, rows[1])
	assert.Equal(t, []string{"2021-03-04", "05:06:08", "0", "3.75"}, rows[2])
	assert.Equal(t, []string{"2021-03-05", "05:06:07", "100", "2.25"}, rows[3])
}

func TestProcessor_ProcessUploads_EmptyBatch(t *testing.T) {
	p := testProcessor(t)
	_, err := p.ProcessUploads(nil, Options{})
	require.Error(t, err)
	assert.True(t, IsInputError(err), "empty batch should be an input error, got %v", err)
}

func TestProcessor_ProcessUploads_NestedZipWithTraversal(t *testing.T) {
	doorContent := make([]byte, 46)
	doorContent = append(doorContent, intPacket(1614834367, 5, 42)...)

	inner := buildZip(t, map[string][]byte{
		"Depot_DataLogDoorOpen.dtl": doorContent,
	})

	co2Content := make([]byte, 39)
	co2Content = append(co2Content, floatPacket(1614834367, 0, 9.5)...)

	outer := buildZip(t, map[string][]byte{
		"../../SiteB_DataLogCO2Days.dtl": co2Content,
		"nested/inner.zip":               inner,
		"readme.txt":                     []byte("not telemetry"),
	})

	p := testProcessor(t)
	result, err := p.ProcessUploads(
		[]UploadedItem{{Filename: "batch.zip", Content: outer}},
		Options{Format: "csv"},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.RecognizedFiles)
	assert.Equal(t, map[string]int{"co2days": 1, "dooropen": 1}, result.Summary.FilesByType)

	folder := fmt.Sprintf("%s-Converted%s", DefaultArchiveLabel, time.Now().UTC().Format("20060102"))
	assert.Equal(t, folder+".zip", result.ArchiveFilename)

	entry := readArchiveEntry(t, result.ArchiveBytes, folder+"/dooropen/Depot_DataLogDoorOpen.csv")
	rows, err := csv.NewReader(bytes.NewReader(entry)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Instances of Door Openings", rows[0][3])
	assert.Equal(t, []string{"2021-03-04", "05:06:07", "50", "42"}, rows[1])
}

func TestProcessor_ProcessDirectory_NoRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "mystery.dtl"))

	p := testProcessor(t)
	_, err := p.ProcessDirectory(dir, Options{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestProcessor_ProcessDirectory_MissingRoot(t *testing.T) {
	p := testProcessor(t)
	_, err := p.ProcessDirectory(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestProcessor_ProcessDirectory_BadFormat(t *testing.T) {
	dir := t.TempDir()
	writeDTLFile(t, dir, "SiteA_DataLogCO2Days.dtl", 39, floatPacket(1614834367, 0, 1))

	p := testProcessor(t)
	_, err := p.ProcessDirectory(dir, Options{Format: "pdf"})
	require.Error(t, err)

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindConfig, pe.Kind)
}

func TestProcessor_ProcessDirectory_FailedFileReported(t *testing.T) {
	dir := t.TempDir()
	writeDTLFile(t, dir, "Good_DataLogCO2Days.dtl", 39, floatPacket(1614834367, 0, 1))
	brokenPath := writeDTLFile(t, dir, "Broken_DataLogCO2Days.dtl", 39, floatPacket(1614834367, 0, 2))
	brokenContent, err := os.ReadFile(brokenPath)
	require.NoError(t, err)

	p := testProcessor(t)
	// The broken file validates by size but its read fails immediately
	// after the header.
	p.decoder.open = func(path string) (io.ReadSeekCloser, error) {
		if filepath.Base(path) == "Broken_DataLogCO2Days.dtl" {
			return &brokenFile{data: brokenContent, failAt: 39}, nil
		}
		return os.Open(path)
	}

	result, err := p.ProcessDirectory(dir, Options{Format: "csv"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Broken_DataLogCO2Days.dtl"}, result.Summary.FailedFiles)
	assert.Empty(t, result.Summary.EmptyFiles)
	assert.Equal(t, 2, result.Summary.RecognizedFiles)
}

func TestProcessor_ProcessDirectory_EmptyFileReported(t *testing.T) {
	dir := t.TempDir()
	writeDTLFile(t, dir, "Good_DataLogCO2Days.dtl", 39, floatPacket(1614834367, 0, 1))

	// Misaligned payload: one stray byte after the header.
	bad := make([]byte, 40)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad_DataLogCO2Days.dtl"), bad, 0644))

	p := testProcessor(t)
	result, err := p.ProcessDirectory(dir, Options{Format: "csv"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.RecognizedFiles)
	assert.Equal(t, []string{"Bad_DataLogCO2Days.dtl"}, result.Summary.EmptyFiles)
	assert.Empty(t, result.Summary.FailedFiles)

	// The empty file still produces an exported table with only headers.
	folder := fmt.Sprintf("%s-Converted%s", DefaultArchiveLabel, time.Now().UTC().Format("20060102"))
	entry := readArchiveEntry(t, result.ArchiveBytes, folder+"/co2days/Bad_DataLogCO2Days.csv")
	rows, err := csv.NewReader(bytes.NewReader(entry)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
