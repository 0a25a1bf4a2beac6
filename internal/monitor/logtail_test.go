package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/monitor"
)

func TestLogTailer_EmptyAPILogsIsIdempotent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 0, nil)
	req := tailer.Begin()
	tailer.Apply(req, &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("01", "a")}})

	for range 3 {
		req := tailer.Begin()
		g.Expect(req.Cursor).To(Equal("01"))
		g.Expect(tailer.Apply(req, &domain.LogBatch{})).To(Equal(0))
	}

	g.Expect(tailer.Cursor()).To(Equal("01"))
	g.Expect(tailer.APIEntries()).To(Equal([]domain.LogEntry{apiEntry("01", "a")}))
}

func TestLogTailer_CursorNeverMovesBackwards(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 0, nil)

	// Two fetches issued with the same cursor; the newer one lands first.
	slow := tailer.Begin()
	fast := tailer.Begin()

	tailer.Apply(fast, &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("01", "a"), apiEntry("02", "b"), apiEntry("03", "c")}})
	g.Expect(tailer.Cursor()).To(Equal("03"))

	appended := tailer.Apply(slow, &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("01", "a"), apiEntry("02", "b")}})

	g.Expect(appended).To(Equal(0), "stale response should not append")
	g.Expect(tailer.Cursor()).To(Equal("03"), "cursor must not decrease")
	g.Expect(tailer.APIEntries()).To(HaveLen(3))
}

func TestLogTailer_NoDuplicationOrLoss(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	// Server log with entries "00".."09"; returns everything strictly after the cursor.
	var serverLog []domain.LogEntry
	for i := range 10 {
		serverLog = append(serverLog, apiEntry(fmt.Sprintf("%02d", i), fmt.Sprintf("line %d", i)))
	}
	visible := 0
	repo := newFakeRepo()
	repo.logs = func(after string) (*domain.LogBatch, error) {
		var out []domain.LogEntry
		for _, e := range serverLog[:visible] {
			if after == "" || e.Timestamp > after {
				out = append(out, e)
			}
		}
		return &domain.LogBatch{APILogs: out}, nil
	}

	tailer := monitor.NewLogTailer(repo, 0, nil)
	for _, v := range []int{0, 3, 3, 7, 10, 10} {
		visible = v
		_, err := tailer.Refresh(context.Background())
		g.Expect(err).ToNot(HaveOccurred())
	}

	g.Expect(tailer.APIEntries()).To(Equal(serverLog))
	g.Expect(tailer.Cursor()).To(Equal("09"))
}

func TestLogTailer_BufferCap(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 0, nil)
	for batch := range 3 {
		var entries []domain.LogEntry
		for i := range 200 {
			n := batch*200 + i
			entries = append(entries, apiEntry(fmt.Sprintf("%04d", n), fmt.Sprintf("line %d", n)))
		}
		tailer.Apply(tailer.Begin(), &domain.LogBatch{APILogs: entries})
	}

	api := tailer.APIEntries()
	g.Expect(api).To(HaveLen(monitor.DefaultMaxAPIEntries))
	g.Expect(api[0].Timestamp).To(Equal("0100"), "oldest entries are discarded first")
	g.Expect(api[len(api)-1].Timestamp).To(Equal("0599"))
	g.Expect(tailer.Cursor()).To(Equal("0599"))
}

// Scenario: a stale refresh carrying a longer script log but no api logs.
func TestLogTailer_StaleRefreshReplacesScriptOnly(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 0, nil)
	reqA := tailer.Begin()
	reqB := tailer.Begin()

	tailer.Apply(reqA, &domain.LogBatch{
		ScriptLines: []domain.LogEntry{scriptEntry("A"), scriptEntry("B")},
		APILogs:     []domain.LogEntry{apiEntry("1", "entry")},
	})
	tailer.Apply(reqB, &domain.LogBatch{
		ScriptLines: []domain.LogEntry{scriptEntry("A"), scriptEntry("B"), scriptEntry("C")},
	})

	g.Expect(tailer.ScriptEntries()).To(Equal([]domain.LogEntry{scriptEntry("A"), scriptEntry("B"), scriptEntry("C")}))
	g.Expect(tailer.APIEntries()).To(Equal([]domain.LogEntry{apiEntry("1", "entry")}))
	g.Expect(tailer.Cursor()).To(Equal("1"))
	g.Expect(tailer.Merged()).To(Equal([]domain.LogEntry{
		scriptEntry("A"), scriptEntry("B"), scriptEntry("C"), apiEntry("1", "entry"),
	}))
}

func TestLogTailer_ResetDropsInFlightResponses(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 0, nil)
	tailer.Apply(tailer.Begin(), &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("05", "old job")}})

	inFlight := tailer.Begin()
	tailer.Reset()
	g.Expect(tailer.Cursor()).To(BeEmpty())
	g.Expect(tailer.APIEntries()).To(BeEmpty())

	tailer.Apply(inFlight, &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("06", "old job late")}})
	g.Expect(tailer.APIEntries()).To(BeEmpty(), "a response issued before the reset belongs to the old job")

	fresh := tailer.Begin()
	g.Expect(fresh.Cursor).To(BeEmpty())
	tailer.Apply(fresh, &domain.LogBatch{APILogs: []domain.LogEntry{apiEntry("07", "new job")}})
	g.Expect(tailer.APIEntries()).To(Equal([]domain.LogEntry{apiEntry("07", "new job")}))
}

func TestLogTailer_FetchFailureKeepsBuffers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fail := false
	repo := newFakeRepo()
	repo.logs = func(string) (*domain.LogBatch, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &domain.LogBatch{
			ScriptLines: []domain.LogEntry{scriptEntry("s")},
			APILogs:     []domain.LogEntry{apiEntry("1", "a")},
		}, nil
	}

	tailer := monitor.NewLogTailer(repo, 0, nil)
	_, err := tailer.Refresh(context.Background())
	g.Expect(err).ToNot(HaveOccurred())

	fail = true
	_, err = tailer.Refresh(context.Background())
	g.Expect(err).To(HaveOccurred())

	g.Expect(tailer.ScriptEntries()).To(HaveLen(1))
	g.Expect(tailer.APIEntries()).To(HaveLen(1))
	g.Expect(tailer.Cursor()).To(Equal("1"))
	g.Expect(repo.lastAfter()).To(Equal("1"), "second request should carry the cursor")
}

func TestLogTailer_RestoreAndTail(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tailer := monitor.NewLogTailer(newFakeRepo(), 2, nil)
	tailer.Restore(domain.LogTail{
		Cursor:  "03",
		Entries: []domain.LogEntry{apiEntry("01", "a"), apiEntry("02", "b"), apiEntry("03", "c")},
	})

	tail := tailer.Tail()
	g.Expect(tail.Cursor).To(Equal("03"))
	g.Expect(tail.Entries).To(Equal([]domain.LogEntry{apiEntry("02", "b"), apiEntry("03", "c")}))
}
