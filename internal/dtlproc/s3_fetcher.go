package dtlproc

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// fetchExtensions are the object suffixes worth downloading: raw logger
// files and archives of them.
var fetchExtensions = []string{".dtl", ".zip"}

// ObjectFetcher downloads candidate objects from an S3 bucket into a
// local staging tree so the normal directory pipeline can run over them.
type ObjectFetcher struct {
	client S3Client
	logger *slog.Logger
}

// NewObjectFetcher creates an ObjectFetcher.
func NewObjectFetcher(client S3Client, logger *slog.Logger) *ObjectFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectFetcher{client: client, logger: logger}
}

// ListCandidates lists every object under bucket/prefix with a
// recognized extension, following pagination to the end.
func (f *ObjectFetcher) ListCandidates(ctx context.Context, bucket, prefix string) ([]S3Object, error) {
	var candidates []S3Object
	var continuationToken string

	for {
		page, err := f.client.ListObjectsV2(ctx, bucket, prefix, continuationToken)
		if err != nil {
			return nil, NewInternalError(err, "failed to list bucket %s", bucket)
		}

		for _, obj := range page.Objects {
			if hasFetchExtension(obj.Key) {
				candidates = append(candidates, obj)
			}
		}

		if !page.IsTruncated || page.NextContinuationToken == "" {
			break
		}
		continuationToken = page.NextContinuationToken
	}

	return candidates, nil
}

// FetchAll downloads every candidate object into destDir, preserving the
// key's path structure after sanitation, and returns the local paths.
// Zero candidates is an input error, matching an empty upload batch.
func (f *ObjectFetcher) FetchAll(ctx context.Context, bucket, prefix, destDir string) ([]string, error) {
	candidates, err := f.ListCandidates(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, NewInputError("no .dtl or .zip objects found under s3://%s/%s", bucket, prefix)
	}

	localPaths := make([]string, 0, len(candidates))
	for _, obj := range candidates {
		localPath := filepath.Join(destDir, SafeRelativePath(obj.Key))
		if err := f.client.DownloadFile(ctx, bucket, obj.Key, localPath); err != nil {
			return nil, NewInternalError(err, "failed to download s3://%s/%s", bucket, obj.Key)
		}
		localPaths = append(localPaths, localPath)
		f.logger.Debug("Downloaded object.", "key", obj.Key, "size", obj.Size, "path", localPath)
	}

	f.logger.Info("Fetched objects from S3.", "bucket", bucket, "prefix", prefix, "count", len(localPaths))
	return localPaths, nil
}

func hasFetchExtension(key string) bool {
	ext := strings.ToLower(filepath.Ext(key))
	for _, want := range fetchExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
