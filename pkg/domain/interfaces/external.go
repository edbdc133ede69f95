package interfaces

import (
	"context"

	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// RuleExecutor runs a single rule
type RuleExecutor interface {
	Execute(ctx context.Context, run *model.RuleRun, payload []byte) (*model.RunReport, error)
}

// Notifier posts human-readable notices about installation lifecycle changes
type Notifier interface {
	NotifyInstallation(ctx context.Context, installation *model.Installation) error
}
