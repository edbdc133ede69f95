package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"google.golang.org/api/option"
)

// ReportStore writes rule run reports as JSON objects into a bucket
type ReportStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ReportStore = (*ReportStore)(nil)

// New creates a ReportStore for bucket. Objects are written under prefix
// (default "runs").
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*ReportStore, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}
	if prefix == "" {
		prefix = "runs"
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &ReportStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// ObjectName returns the object path of a report
func ObjectName(prefix string, report *model.RunReport) string {
	return path.Join(prefix, fmt.Sprintf("%d", report.Run.InstallationID), report.Run.ID+".json")
}

func (s *ReportStore) PutReport(ctx context.Context, report *model.RunReport) error {
	name := ObjectName(s.prefix, report)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(report); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode run report", goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to write run report",
			goerr.V("bucket", s.bucket),
			goerr.V("object", name),
		)
	}
	return nil
}

// Close releases the storage client
func (s *ReportStore) Close() error {
	return s.client.Close()
}
