package application

import (
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/metrics"
)

// SessionConfig holds the tunables of an execution session
type SessionConfig struct {
	// UndoTarget is the status an undone task returns to
	UndoTarget domain.TaskStatus
	// AlwaysFullRefresh ignores mutation deltas and re-fetches the worksheet
	AlwaysFullRefresh bool
}

// DefaultSessionConfig returns the default session configuration
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		UndoTarget: domain.TaskStatusExecuting,
	}
}

// SessionDeps bundles what every execution session is wired to.
// Journal, Notifier and Metrics are optional.
type SessionDeps struct {
	Backend  domain.Backend
	Guides   *domain.GuideRegistry
	Journal  domain.ExecutionJournal
	Notifier domain.CompletionNotifier
	Config   *SessionConfig
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.Config == nil {
		d.Config = DefaultSessionConfig()
	}
	if d.Guides == nil {
		d.Guides = domain.NewGuideRegistry()
	}
	if d.Logger == nil {
		d.Logger = logging.New(logging.DefaultConfig("vas-service"))
	}
	return d
}
