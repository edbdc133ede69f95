package firestore

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionInstallations = "installations"

// Client is a Firestore backed InstallationRepository
type Client struct {
	client *firestore.Client
}

var _ interfaces.InstallationRepository = (*Client)(nil)

// New connects to the Firestore database. An empty databaseID selects the
// default database.
func New(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Client, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	return &Client{client: client}, nil
}

// Close releases the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) doc(id int64) *firestore.DocumentRef {
	return c.client.Collection(collectionInstallations).Doc(strconv.FormatInt(id, 10))
}

func (c *Client) CreateInstallation(ctx context.Context, installation *model.Installation) error {
	if _, err := c.doc(installation.ID).Create(ctx, installation); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(err, "installation already exists",
				goerr.V("installation_id", installation.ID),
				goerr.T(model.ErrTagInstallationExists),
			)
		}
		return goerr.Wrap(err, "failed to create installation", goerr.V("installation_id", installation.ID))
	}
	return nil
}

func (c *Client) GetInstallation(ctx context.Context, id int64) (*model.Installation, error) {
	snap, err := c.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get installation", goerr.V("installation_id", id))
	}

	var installation model.Installation
	if err := snap.DataTo(&installation); err != nil {
		return nil, goerr.Wrap(err, "failed to decode installation", goerr.V("installation_id", id))
	}
	return &installation, nil
}

func (c *Client) UpdateSettings(ctx context.Context, id int64, settings *model.Settings) error {
	_, err := c.doc(id).Update(ctx, []firestore.Update{
		{Path: "settings", Value: settings},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(err, "installation not found",
				goerr.V("installation_id", id),
				goerr.T(model.ErrTagInstallationNotFound),
			)
		}
		return goerr.Wrap(err, "failed to update settings", goerr.V("installation_id", id))
	}
	return nil
}

func (c *Client) DeleteInstallation(ctx context.Context, id int64) error {
	if _, err := c.doc(id).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete installation", goerr.V("installation_id", id))
	}
	return nil
}
