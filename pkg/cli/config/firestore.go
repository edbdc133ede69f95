package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/infra/firestore"
	"github.com/m-mizutani/hookwarden/pkg/infra/memory"
	"github.com/urfave/cli/v3"
)

// Firestore holds installation storage configuration
type Firestore struct {
	ProjectID  string
	DatabaseID string
}

// Flags returns CLI flags for Firestore configuration
func (c *Firestore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project of the Firestore database. Installations are kept in memory when empty",
			Destination: &c.ProjectID,
			Sources:     cli.EnvVars("HOOKWARDEN_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.DatabaseID,
			Sources:     cli.EnvVars("HOOKWARDEN_FIRESTORE_DATABASE_ID"),
		},
	}
}

// NewRepository returns the Firestore repository, or an in-memory one when no
// project is configured. The returned func releases the client.
func (c *Firestore) NewRepository(ctx context.Context) (interfaces.InstallationRepository, func(), error) {
	if c.ProjectID == "" {
		return memory.NewInstallationRepository(), func() {}, nil
	}

	client, err := firestore.New(ctx, c.ProjectID, c.DatabaseID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", c.ProjectID),
			goerr.V("database_id", c.DatabaseID),
		)
	}
	return client, func() { _ = client.Close() }, nil
}
