package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ObjectUploader copies a local file to a bucket.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, object, filePath string) error
}

// ObjectName is the object path of a backup file taken at the given time.
func ObjectName(at time.Time, file string) string {
	at = at.UTC()
	return fmt.Sprintf("backups/%04d/%02d/%02d/%s", at.Year(), at.Month(), at.Day(), path.Base(filepath.ToSlash(file)))
}

// Uploader writes objects with a Cloud Storage client.
type Uploader struct {
	client  *storage.Client
	timeout time.Duration
}

// NewUploader creates an Uploader using Application Default Credentials.
func NewUploader(ctx context.Context) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewUploaderWithClient(client), nil
}

// NewUploaderWithClient creates an Uploader on an existing client.
func NewUploaderWithClient(client *storage.Client) *Uploader {
	return &Uploader{client: client, timeout: 2 * time.Minute}
}

// Close releases the storage client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// Upload copies the local file at filePath to bucket/object.
func (u *Uploader) Upload(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	w := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/vnd.sqlite3"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Result describes one completed backup.
type Result struct {
	Path   string
	Bucket string
	Object string
}

// Run snapshots db into dir and, when bucket is set, uploads the snapshot.
// The local copy is kept either way.
func Run(ctx context.Context, db *gorm.DB, dir, bucket string, up ObjectUploader, log zerolog.Logger) (*Result, error) {
	now := time.Now().UTC()

	p, err := Snapshot(ctx, db, dir, now)
	if err != nil {
		return nil, err
	}
	res := &Result{Path: p}
	log.Info().Str("path", p).Msg("database snapshot written")

	if bucket == "" || up == nil {
		return res, nil
	}

	object := ObjectName(now, p)
	if err := up.Upload(ctx, bucket, object, p); err != nil {
		return res, fmt.Errorf("Run: uploading %s: %w", p, err)
	}
	res.Bucket = bucket
	res.Object = object
	log.Info().Str("bucket", bucket).Str("object", object).Msg("database snapshot uploaded")
	return res, nil
}

// String renders the result for job output.
func (r *Result) String() string {
	if r.Object == "" {
		return "snapshot " + r.Path
	}
	return fmt.Sprintf("snapshot %s uploaded to gs://%s/%s", r.Path, r.Bucket, r.Object)
}
