package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

// waitFor polls cond until it holds or one second passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// failingRepository fails every call with err
type failingRepository struct {
	err error
}

func (r *failingRepository) CreateInstallation(ctx context.Context, installation *model.Installation) error {
	return r.err
}

func (r *failingRepository) GetInstallation(ctx context.Context, id int64) (*model.Installation, error) {
	return nil, r.err
}

func (r *failingRepository) UpdateSettings(ctx context.Context, id int64, settings *model.Settings) error {
	return r.err
}

func (r *failingRepository) DeleteInstallation(ctx context.Context, id int64) error {
	return r.err
}

type MockNotifier struct {
	mu    sync.Mutex
	calls []*model.Installation
	err   error
}

func (m *MockNotifier) NotifyInstallation(ctx context.Context, installation *model.Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, installation)
	return m.err
}
