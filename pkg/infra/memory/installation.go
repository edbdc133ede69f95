package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// InstallationRepository keeps installations in process memory. It is used
// when no Firestore project is configured and by tests.
type InstallationRepository struct {
	mu            sync.RWMutex
	installations map[int64]model.Installation
}

var _ interfaces.InstallationRepository = (*InstallationRepository)(nil)

// NewInstallationRepository creates an empty repository
func NewInstallationRepository() *InstallationRepository {
	return &InstallationRepository{
		installations: make(map[int64]model.Installation),
	}
}

func (r *InstallationRepository) CreateInstallation(ctx context.Context, installation *model.Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.installations[installation.ID]; exists {
		return goerr.New("installation already exists",
			goerr.V("installation_id", installation.ID),
			goerr.T(model.ErrTagInstallationExists),
		)
	}
	r.installations[installation.ID] = *installation
	return nil
}

func (r *InstallationRepository) GetInstallation(ctx context.Context, id int64) (*model.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	installation, ok := r.installations[id]
	if !ok {
		return nil, nil
	}
	return &installation, nil
}

func (r *InstallationRepository) UpdateSettings(ctx context.Context, id int64, settings *model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	installation, ok := r.installations[id]
	if !ok {
		return goerr.New("installation not found",
			goerr.V("installation_id", id),
			goerr.T(model.ErrTagInstallationNotFound),
		)
	}
	installation.Settings = *settings
	installation.UpdatedAt = time.Now().UTC()
	r.installations[id] = installation
	return nil
}

func (r *InstallationRepository) DeleteInstallation(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.installations, id)
	return nil
}
