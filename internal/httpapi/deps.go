package httpapi

import (
	"context"
	"sync/atomic"

	"jobpulse-engine/internal/config"
	"jobpulse-engine/internal/dashboard"
	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/events"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/search"
	"jobpulse-engine/internal/store"
)

// Searcher is satisfied by *search.Session and *search.Client.
type Searcher interface {
	Search(ctx context.Context, f search.Filter) (search.Page, error)
}

// Tracker is satisfied by *store.Tracker.
type Tracker interface {
	Save(ctx context.Context, l domain.JobListing) (domain.TrackedJob, bool, error)
	Get(ctx context.Context, id int64) (domain.TrackedJob, error)
	UpdateStatus(ctx context.Context, id int64, s domain.Status) (domain.TrackedJob, error)
	SetNotes(ctx context.Context, id int64, notes string) (domain.TrackedJob, error)
	List(ctx context.Context, opts store.ListOptions) ([]domain.TrackedJob, error)
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context, id int64) ([]domain.StatusChange, error)
}

// Dashboard is satisfied by *dashboard.Aggregator.
type Dashboard interface {
	ComputeSnapshot(ctx context.Context) (dashboard.Snapshot, error)
}

type Deps struct {
	Log *logging.Logger

	Searcher  Searcher
	Tracker   Tracker
	Dashboard Dashboard

	// Hub feeds /events; Publisher receives every event (usually Hub plus mirrors).
	Hub       *events.Hub
	Publisher events.Publisher

	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Keychain access, injectable for tests.
	SetToken    func(token string) error
	DeleteToken func() error
}
