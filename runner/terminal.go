package runner

import (
	"fmt"
	"io"
)

// TerminalObserver streams stage outcomes as human readable lines
type TerminalObserver struct {
	w io.Writer
}

// NewTerminalObserver creates an observer writing to w
func NewTerminalObserver(w io.Writer) *TerminalObserver {
	return &TerminalObserver{w: w}
}

// RunStarted prints the run label and item count
func (o *TerminalObserver) RunStarted(s Snapshot) {
	fmt.Fprintf(o.w, "\n📦 %s: %d item(s)\n", s.Label, len(s.Items))
}

// StageChanged prints one line per stage transition
func (o *TerminalObserver) StageChanged(s Snapshot, itemID string, stage Stage) {
	item, ok := findItem(s, itemID)
	if !ok {
		return
	}

	label := item.PrimaryLabel
	if stage == StageSecondary {
		label = item.SecondaryLabel
	}

	switch item.Status(stage) {
	case StatusInProgress:
		fmt.Fprintf(o.w, "→ %s [%s]\n", label, stage)
	case StatusSucceeded:
		fmt.Fprintf(o.w, "✅ Done: %s (%d%%)\n", label, s.CompletedPercent)
	case StatusFailed:
		fmt.Fprintf(o.w, "❌ Failed: %s: %s (%d%%)\n", label, item.Error(stage), s.CompletedPercent)
	}
}

// RunFinished prints the tallies, or the percent reached when cancelled
func (o *TerminalObserver) RunFinished(s Snapshot) {
	if s.Phase == PhaseCancelled {
		fmt.Fprintf(o.w, "\n🛑 Cancelled at %d%%\n", s.CompletedPercent)
		return
	}
	if s.Tallies != nil {
		fmt.Fprintf(o.w, "\n🏁 Finished: %d fully succeeded, %d with errors\n", s.Tallies.FullySucceeded, s.Tallies.HasError)
	}
}
