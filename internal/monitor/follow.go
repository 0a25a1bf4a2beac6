package monitor

// DefaultFollowThreshold is the distance from the bottom, in scroll units,
// that still counts as pinned.
const DefaultFollowThreshold = 40

// Follower tracks whether a log viewer is pinned to the bottom.
// It is owned by the rendering loop and is not safe for concurrent use.
type Follower struct {
	threshold int
	pinned    bool
}

// NewFollower returns a pinned follower. threshold <= 0 uses DefaultFollowThreshold.
func NewFollower(threshold int) *Follower {
	if threshold <= 0 {
		threshold = DefaultFollowThreshold
	}
	return &Follower{threshold: threshold, pinned: true}
}

// Observe records the viewer's geometry after a render or scroll and
// returns the resulting pinned state.
func (f *Follower) Observe(scrollHeight, scrollTop, viewportHeight int) bool {
	f.pinned = scrollHeight-scrollTop-viewportHeight < f.threshold
	return f.pinned
}

// ShouldScroll reports whether content growth should force-scroll to the bottom
func (f *Follower) ShouldScroll(grew bool) bool {
	return grew && f.pinned
}

// JumpToBottom re-pins after an explicit request from the viewer
func (f *Follower) JumpToBottom() {
	f.pinned = true
}

// Pinned reports whether the viewer follows new output
func (f *Follower) Pinned() bool {
	return f.pinned
}

// Threshold returns the configured pin distance
func (f *Follower) Threshold() int {
	return f.threshold
}
