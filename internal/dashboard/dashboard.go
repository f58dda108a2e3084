// Package dashboard derives summary statistics from tracked jobs.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/store"
)

// Source is satisfied by *store.Tracker.
type Source interface {
	DashboardData(ctx context.Context, k int) (store.DashboardData, error)
}

// Snapshot is computed on demand and never stored.
type Snapshot struct {
	SavedJobs      int                   `json:"savedJobs"`
	Applications   int                   `json:"applications"`
	Interviews     int                   `json:"interviews"`
	Offers         int                   `json:"offers"`
	Rejections     int                   `json:"rejections"`
	ByStatus       map[domain.Status]int `json:"byStatus"`
	RecentActivity []domain.TrackedJob   `json:"recentActivity"`
	RecentChanges  []domain.StatusChange `json:"recentChanges"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}

type Aggregator struct {
	src    Source
	recent int
	now    func() time.Time
}

// NewAggregator lists up to recent items in the activity feeds (10 if <= 0).
func NewAggregator(src Source, recent int) *Aggregator {
	if recent <= 0 {
		recent = 10
	}
	return &Aggregator{src: src, recent: recent, now: time.Now}
}

func (a *Aggregator) ComputeSnapshot(ctx context.Context) (Snapshot, error) {
	data, err := a.src.DashboardData(ctx, a.recent)
	if err != nil {
		return Snapshot{}, fmt.Errorf("dashboard: %w", err)
	}

	s := Snapshot{
		ByStatus:       make(map[domain.Status]int, len(domain.AllStatuses)),
		RecentActivity: data.Recent,
		RecentChanges:  data.Changes,
		GeneratedAt:    a.now().UTC(),
	}
	for _, st := range domain.AllStatuses {
		n := data.Counts[st]
		s.ByStatus[st] = n
		s.SavedJobs += n

		// an application is anything the user acted on past "interested"
		if st.Rank() >= domain.StatusApplied.Rank() {
			s.Applications += n
		}
	}
	s.Interviews = data.Counts[domain.StatusInterview]
	s.Offers = data.Counts[domain.StatusAccepted]
	s.Rejections = data.Counts[domain.StatusRejected]
	return s, nil
}
