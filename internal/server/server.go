// Package server exposes the conversion pipeline over HTTP. It is thin
// glue: multipart uploads in, a ZIP archive out, with errors mapped to
// status codes by their pipeline classification.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/sykersystems/dtlflow/internal/dtlproc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxUploadBytes bounds how much of a multipart request is held in
// memory before spilling to disk. Inputs are small bounded batches.
const maxUploadBytes = 256 << 20

// Server serves the conversion endpoints.
type Server struct {
	processor *dtlproc.Processor
	logger    *slog.Logger
}

// NewServer creates a Server around a processor.
func NewServer(processor *dtlproc.Processor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{processor: processor, logger: logger}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/process", s.processHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// processHandler accepts one or more uploads in the "files" field, plus
// optional "archive_label", "format", and "columns" (a JSON object of
// column-key to header overrides) form fields, and responds with the
// ZIP archive.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart request: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, err := readUploads(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := dtlproc.Options{
		ArchiveLabel: r.FormValue("archive_label"),
		Format:       r.FormValue("format"),
	}
	if raw := r.FormValue("columns"); raw != "" {
		if err := json.UnmarshalFromString(raw, &opts.CustomColumns); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid columns field: %v", err))
			return
		}
	}

	logger.Info("Processing upload batch.", "files", len(uploads), "label", opts.ArchiveLabel)

	result, err := s.processor.ProcessUploads(uploads, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if dtlproc.IsInputError(err) {
			status = http.StatusBadRequest
		}
		logger.Warn("Processing failed.", "status", status, "error", err)
		s.writeError(w, status, err.Error())
		return
	}

	logger.Info("Processing succeeded.",
		"archive", result.ArchiveFilename,
		"recognized", result.Summary.RecognizedFiles,
		"unrecognized", result.Summary.UnrecognizedFiles)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.ArchiveFilename))
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(http.StatusOK)
	w.Write(result.ArchiveBytes)
}

// readUploads collects the uploaded files in their submitted order.
func readUploads(r *http.Request) ([]dtlproc.UploadedItem, error) {
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		return nil, fmt.Errorf("at least one file must be provided in the 'files' field")
	}

	uploads := make([]dtlproc.UploadedItem, 0, len(parts))
	for _, header := range parts {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("could not open uploaded file %s: %v", header.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("could not read uploaded file %s: %v", header.Filename, err)
		}
		uploads = append(uploads, dtlproc.UploadedItem{Filename: header.Filename, Content: content})
	}
	return uploads, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response body.", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
