package interfaces

import (
	"context"

	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// InstallationRepository persists installation records
type InstallationRepository interface {
	// CreateInstallation stores a new record. It fails with
	// model.ErrTagInstallationExists if the id is already stored.
	CreateInstallation(ctx context.Context, installation *model.Installation) error

	// GetInstallation returns nil without error when the id is unknown
	GetInstallation(ctx context.Context, id int64) (*model.Installation, error)

	// UpdateSettings replaces the settings of a stored installation
	UpdateSettings(ctx context.Context, id int64, settings *model.Settings) error

	// DeleteInstallation removes the record. Deleting an unknown id is not an error.
	DeleteInstallation(ctx context.Context, id int64) error
}

// ReportStore archives rule run reports
type ReportStore interface {
	PutReport(ctx context.Context, report *model.RunReport) error
}
