package monitor_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
)

func TestProgressPoller_StartsIdle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := monitor.NewProgressPoller(newFakeRepo(), nil)

	g.Expect(p.State()).To(Equal(monitor.PollIdle))
	g.Expect(p.Active()).To(BeFalse())
	g.Expect(p.Progress()).To(BeNil())
	_, known := p.Percent()
	g.Expect(known).To(BeFalse())
}

func TestProgressPoller_ActivateIsIdempotent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := monitor.NewProgressPoller(newFakeRepo(), nil)

	g.Expect(p.Activate()).To(BeTrue())
	g.Expect(p.Activate()).To(BeFalse())
	g.Expect(p.State().String()).To(Equal("polling"))
}

func TestProgressPoller_SettlesWhenJobStops(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := monitor.NewProgressPoller(newFakeRepo(), nil)
	p.Activate()

	g.Expect(p.Apply(&domain.SyncProgress{IsSyncing: true, SyncedCount: 10, TotalCount: 100})).To(BeFalse())
	g.Expect(p.Active()).To(BeTrue())

	g.Expect(p.Apply(&domain.SyncProgress{IsSyncing: false, SyncedCount: 100, TotalCount: 100})).To(BeTrue())
	g.Expect(p.Active()).To(BeFalse())

	// Already idle: nothing to settle
	g.Expect(p.Apply(&domain.SyncProgress{IsSyncing: false})).To(BeFalse())
}

func TestProgressPoller_ActivateSinceIgnoresObservationsBeforeSettle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := monitor.NewProgressPoller(newFakeRepo(), nil)
	p.Activate()
	gen := p.Settles()

	g.Expect(p.Apply(&domain.SyncProgress{IsSyncing: false})).To(BeTrue())
	g.Expect(p.Settles()).To(Equal(gen + 1))

	g.Expect(p.ActivateSince(gen)).To(BeFalse())
	g.Expect(p.Active()).To(BeFalse())

	// An observation made after the settle still starts polling
	g.Expect(p.ActivateSince(p.Settles())).To(BeTrue())
	g.Expect(p.Active()).To(BeTrue())
}

func TestProgressPoller_ErrorMessageKeepsPolling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := monitor.NewProgressPoller(newFakeRepo(), nil)
	p.Activate()

	settled := p.Apply(&domain.SyncProgress{IsSyncing: true, SyncedCount: 3, TotalCount: 10, ErrorMessage: "quota exceeded"})

	g.Expect(settled).To(BeFalse())
	g.Expect(p.Active()).To(BeTrue())
	g.Expect(p.Progress().ErrorMessage).To(Equal("quota exceeded"))
}

func TestProgressPoller_Percent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		synced    int
		total     int
		want      float64
		wantKnown bool
	}{
		{"halfway", 50, 100, 50, true},
		{"zero total is indeterminate", 5, 0, 0, false},
		{"negative total is indeterminate", 5, -1, 0, false},
		{"overshoot clamps to 100", 150, 100, 100, true},
		{"negative synced clamps to 0", -5, 100, 0, true},
		{"scenario start", 5, 100, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			p := monitor.NewProgressPoller(newFakeRepo(), nil)
			p.Apply(&domain.SyncProgress{IsSyncing: true, SyncedCount: tt.synced, TotalCount: tt.total})

			got, known := p.Percent()
			g.Expect(known).To(Equal(tt.wantKnown))
			g.Expect(got).To(BeNumerically("~", tt.want, 0.001))
		})
	}
}

func TestProgressPoller_FetchDoesNotApply(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	repo := newFakeRepo()
	repo.progress = domain.SyncProgress{IsSyncing: true, SyncedCount: 1, TotalCount: 2}
	p := monitor.NewProgressPoller(repo, nil)

	got, err := p.Fetch(context.Background())

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(got.SyncedCount).To(Equal(1))
	g.Expect(p.Progress()).To(BeNil())
	g.Expect(repo.count("progress")).To(Equal(1))
}
