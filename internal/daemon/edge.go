package daemon

import "github.com/s1500tools/s1500d/internal/protocol"

// transitions diffs two consecutive snapshots and yields the edge events
// between them, paper before button. Unchanged fields yield nothing: the
// detector is purely edge-triggered, with no level-triggered repeats.
func transitions(prev, curr protocol.Snapshot) []Event {
	var evs []Event
	if !prev.Paper && curr.Paper {
		evs = append(evs, PaperIn)
	}
	if prev.Paper && !curr.Paper {
		evs = append(evs, PaperOut)
	}
	if !prev.Button() && curr.Button() {
		evs = append(evs, ButtonDown)
	}
	if prev.Button() && !curr.Button() {
		evs = append(evs, ButtonUp)
	}
	return evs
}
