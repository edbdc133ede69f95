package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/infra/gcs"
	"github.com/urfave/cli/v3"
)

// Storage holds rule run report archive configuration
type Storage struct {
	Bucket string
	Prefix string
}

// Flags returns CLI flags for Storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-bucket",
			Usage:       "Cloud Storage bucket for rule run reports",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("HOOKWARDEN_REPORT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "report-prefix",
			Usage:       "Object prefix for rule run reports",
			Value:       "runs",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("HOOKWARDEN_REPORT_PREFIX"),
		},
	}
}

// NewReportStore returns nil when no bucket is configured
func (c *Storage) NewReportStore(ctx context.Context) (interfaces.ReportStore, func(), error) {
	if c.Bucket == "" {
		return nil, func() {}, nil
	}

	store, err := gcs.New(ctx, c.Bucket, c.Prefix)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create report store", goerr.V("bucket", c.Bucket))
	}
	return store, func() { _ = store.Close() }, nil
}
