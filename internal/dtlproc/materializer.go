package dtlproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	// fallbackUploadName replaces names that sanitize down to nothing.
	fallbackUploadName = "unnamed_uploaded_file.dtl"

	// maxArchiveDepth bounds recursion into archives nested inside
	// archives.
	maxArchiveDepth = 3
)

// Materializer reconstructs an uploaded batch as a directory tree,
// extracting ZIP content and neutralizing path traversal in every name
// it touches.
type Materializer struct {
	logger *slog.Logger
}

// NewMaterializer creates a Materializer.
func NewMaterializer(logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{logger: logger}
}

// SafeRelativePath rewrites an arbitrary, possibly hostile path into a
// purely relative one: split on separators, drop ".." and empty segments
// (which also strips absolute roots), and fall back to a fixed name when
// nothing survives. Hostile input is rewritten silently, never rejected,
// so attackers get no distinguishing oracle.
func SafeRelativePath(name string) string {
	segments := strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\'
	})

	kept := segments[:0]
	for _, seg := range segments {
		if seg == ".." || seg == "." || seg == "" {
			continue
		}
		kept = append(kept, seg)
	}

	if len(kept) == 0 {
		return fallbackUploadName
	}
	return filepath.Join(kept...)
}

// Materialize writes each uploaded item under destRoot. ZIP content is
// extracted into a subfolder named from the item's position in the
// batch, so same-named archives never collide; everything else is
// written as a single sanitized file.
func (m *Materializer) Materialize(uploads []UploadedItem, destRoot string) error {
	for index, item := range uploads {
		filename := item.Filename
		if filename == "" {
			filename = fmt.Sprintf("upload_%d.dtl", index)
		}

		if reader, ok := zipReader(item.Content); ok {
			subfolder := filepath.Join(destRoot, fmt.Sprintf("archive_%d", index))
			if err := os.MkdirAll(subfolder, 0755); err != nil {
				return NewInternalError(err, "could not create extraction folder for %s", filename)
			}
			if err := m.extractArchive(reader, subfolder, 0); err != nil {
				return err
			}
			m.logger.Debug("Extracted uploaded archive.", "filename", filename, "dest", subfolder)
			continue
		}

		target := filepath.Join(destRoot, SafeRelativePath(filename))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return NewInternalError(err, "could not create folder for %s", filename)
		}
		if err := os.WriteFile(target, item.Content, 0644); err != nil {
			return NewInternalError(err, "could not write uploaded file %s", filename)
		}
	}
	return nil
}

// zipReader reports whether content is a ZIP archive by attempting to
// open it, mirroring a magic-number check without a second pass.
// ErrInsecurePath still yields a fully populated reader; entry names go
// through SafeRelativePath before use, so it is not a rejection here.
func zipReader(content []byte) (*zip.Reader, bool) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, false
	}
	return r, true
}

// extractArchive extracts every entry of an open ZIP reader into dest,
// applying the same sanitation used for top-level names to every entry
// path. Directory entries become empty directories; nested .zip entries
// are extracted recursively up to maxArchiveDepth.
func (m *Materializer) extractArchive(reader *zip.Reader, dest string, depth int) error {
	for _, entry := range reader.File {
		target := filepath.Join(dest, SafeRelativePath(entry.Name))

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return NewInternalError(err, "could not create directory entry %s", entry.Name)
			}
			continue
		}

		content, err := readZipEntry(entry)
		if err != nil {
			return NewInternalError(err, "could not read archive entry %s", entry.Name)
		}

		if depth < maxArchiveDepth && strings.EqualFold(filepath.Ext(entry.Name), ".zip") {
			if nested, ok := zipReader(content); ok {
				nestedDest := strings.TrimSuffix(target, filepath.Ext(target))
				if err := os.MkdirAll(nestedDest, 0755); err != nil {
					return NewInternalError(err, "could not create folder for nested archive %s", entry.Name)
				}
				if err := m.extractArchive(nested, nestedDest, depth+1); err != nil {
					return err
				}
				continue
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return NewInternalError(err, "could not create folder for entry %s", entry.Name)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return NewInternalError(err, "could not write archive entry %s", entry.Name)
		}
	}
	return nil
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
