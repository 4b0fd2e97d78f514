package dtlproc

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/zip"
)

// DefaultArchiveLabel names the output container when the caller supplies
// no label, or the supplied label sanitizes down to nothing.
const DefaultArchiveLabel = "Syker_Processed_Data"

var (
	labelStripRe    = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	labelCollapseRe = regexp.MustCompile(`-{2,}`)
)

// SanitizeArchiveLabel reduces a caller-supplied label to
// [A-Za-z0-9_-], collapsing runs of separators, and substitutes the
// default when nothing survives.
func SanitizeArchiveLabel(label string) string {
	sanitized := labelStripRe.ReplaceAllString(label, "-")
	sanitized = labelCollapseRe.ReplaceAllString(sanitized, "-")
	sanitized = trimLabel(sanitized)
	if sanitized == "" {
		return DefaultArchiveLabel
	}
	return sanitized
}

func trimLabel(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == '-' || s[start] == '_') {
		start++
	}
	for end > start && (s[end-1] == '-' || s[end-1] == '_') {
		end--
	}
	return s[start:end]
}

// BuildArchive packages the whole tree under root into a single
// deflate-compressed ZIP, placing every file under archiveName/ so the
// archive unpacks into one named folder.
func BuildArchive(root, archiveName string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		w, err := zw.Create(path.Join(archiveName, filepath.ToSlash(rel)))
		if err != nil {
			return err
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, NewInternalError(err, "failed to build output archive")
	}

	if err := zw.Close(); err != nil {
		return nil, NewInternalError(err, "failed to finalize output archive")
	}
	return buf.Bytes(), nil
}
