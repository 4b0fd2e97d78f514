package dtlproc

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// dtlExtension is the recognized input extension, compared
// case-insensitively.
const dtlExtension = ".dtl"

// Scanner walks a directory tree and classifies .dtl files against an
// injected registry.
type Scanner struct {
	registry Registry
	logger   *slog.Logger
}

// NewScanner creates a Scanner for the given registry.
func NewScanner(registry Registry, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{registry: registry, logger: logger}
}

// Scan recursively enumerates regular files under root whose name ends
// in .dtl (case-insensitive) and groups them by matched file type.
// Unmatched files only increment the unrecognized counter. Zero
// recognized files is a valid result; the caller decides whether that is
// fatal.
func (s *Scanner) Scan(root string) (*Discovery, error) {
	discovery := &Discovery{
		TypeCounts: make(map[string]int, len(s.registry)),
		FoundFiles: make(map[string][]DiscoveredFile, len(s.registry)),
	}
	for _, def := range s.registry {
		discovery.TypeCounts[def.ID] = 0
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Error accessing path during scan, continuing.", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(strings.ToLower(name), dtlExtension) {
			return nil
		}

		def, ok := s.registry.Match(name)
		if !ok {
			discovery.UnrecognizedCount++
			return nil
		}

		discovery.TypeCounts[def.ID]++
		discovery.TotalRecognized++
		discovery.FoundFiles[def.ID] = append(discovery.FoundFiles[def.ID], DiscoveredFile{
			Path:     path,
			Filename: name,
			Type:     def,
		})
		return nil
	})
	if err != nil {
		return nil, NewInternalError(err, "failed to scan directory %s", root)
	}

	s.logger.Debug("Directory scan complete.",
		"root", root,
		"recognized", discovery.TotalRecognized,
		"unrecognized", discovery.UnrecognizedCount)

	return discovery, nil
}
