package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Provider represents a storage provider type
type Provider string

const (
	ProviderS3    Provider = "s3"
	ProviderLocal Provider = "local"
)

// ErrNotFound is returned by Download when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// OutputPrefix names the generated CSV files.
const OutputPrefix = "update_language_"

// Config holds storage configuration
type Config struct {
	Provider  Provider `json:"provider"`
	Bucket    string   `json:"bucket"`
	Region    string   `json:"region"`
	Endpoint  string   `json:"endpoint"` // For S3-compatible storage
	AccessKey string   `json:"access_key"`
	SecretKey string   `json:"secret_key"`
	Prefix    string   `json:"prefix"`     // Key prefix inside the bucket
	LocalPath string   `json:"local_path"` // For local storage
}

// UploadResult contains the result of an upload operation
type UploadResult struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Storage interface defines the storage operations
type Storage interface {
	// Upload uploads a file to storage. A negative size means unknown.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)

	// Download opens a stored file. Missing keys yield ErrNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes a file from storage
	Delete(ctx context.Context, key string) error

	// GetURL returns the location of a file
	GetURL(key string) string
}

// New builds the Storage selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case ProviderS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Prefix:    cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}

// GenerateOutputKey returns the file name for a translation result written at t,
// e.g. update_language_202401311405.csv. Two jobs finishing in the same minute
// share a name, so JobOutputKey scopes it by job.
func GenerateOutputKey(t time.Time) string {
	return OutputPrefix + t.Format("200601021504") + ".csv"
}

// JobOutputKey is the storage key of a job's output file.
func JobOutputKey(jobID, filename string) string {
	return path.Join(jobID, filename)
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("storage: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("storage: invalid key %q", key)
		}
	}
	return nil
}

// ValidateMimeType checks if the mime type is allowed
func ValidateMimeType(mimeType string, allowedTypes []string) bool {
	if len(allowedTypes) == 0 {
		return true
	}

	mimeType = strings.ToLower(mimeType)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, allowed := range allowedTypes {
		if strings.ToLower(allowed) == mimeType {
			return true
		}
		// Support wildcards like "text/*"
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}
	return false
}

// GetMimeTypeFromExtension returns the MIME type for sheet file extensions
func GetMimeTypeFromExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	mimeTypes := map[string]string{
		".csv":  "text/csv",
		".txt":  "text/plain",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
