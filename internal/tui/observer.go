package tui

import (
	"sync"

	"github.com/mmcdole/collie/internal/domain"
)

// ChannelObserver adapts domain.SnapshotObserver to a channel for Bubble Tea.
// Only the latest snapshot is kept; a slow reader skips intermediate ones.
type ChannelObserver struct {
	mu sync.Mutex
	ch chan domain.Snapshot
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan domain.Snapshot, 1)}
}

// OnSnapshot replaces any undelivered snapshot with snap.
func (o *ChannelObserver) OnSnapshot(snap domain.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	select {
	case <-o.ch:
	default:
	}
	o.ch <- snap
}

// C returns the delivery channel.
func (o *ChannelObserver) C() <-chan domain.Snapshot {
	return o.ch
}
