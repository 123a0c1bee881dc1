package stages

import "math"

// Snapshot is one progress observation reported by the remote service.
// Progress is the completion fraction within the current stage.
type Snapshot struct {
	Stage    string  `json:"stage"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// Status classifies a catalog stage relative to the reported one.
type Status string

const (
	StatusDone    Status = "done"
	StatusActive  Status = "active"
	StatusPending Status = "pending"
)

// StageStatus pairs a catalog stage with its classification, in catalog order.
type StageStatus struct {
	Stage  Stage
	Status Status
}

// Report is the aggregated view a presentation layer is driven by.
type Report struct {
	OverallPercent float64
	Stages         []StageStatus
	Message        string
}

// Aggregate maps a raw snapshot to an overall percentage and a per-stage
// classification. It is deterministic and free of side effects.
//
// The denominator excludes the terminal stage: with six working stages the
// snapshot (stage index 2, fraction 0.5) yields (2+0.5)/6*100 = 41.67%. The
// terminal stage forces 100% regardless of fraction; an unknown stage forces
// 0%. The in-stage fraction is clamped to [0,1) so a misreported value can
// never spill into the next stage's range.
func Aggregate(snap Snapshot) Report {
	idx := Index(snap.Stage)
	stagesTotal := len(order) - 1

	frac := snap.Progress
	if math.IsNaN(frac) || frac < 0 {
		frac = 0
	} else if frac >= 1 {
		frac = math.Nextafter(1, 0)
	}

	var overall float64
	switch {
	case idx >= 0 && idx < stagesTotal:
		overall = (float64(idx) + frac) / float64(stagesTotal) * 100
		overall = math.Min(math.Max(overall, 0), 100)
	case Stage(snap.Stage) == StageComplete:
		overall = 100
	default:
		overall = 0
	}

	statuses := make([]StageStatus, len(order))
	for i, s := range order {
		status := StatusPending
		switch {
		case idx >= 0 && i < idx:
			status = StatusDone
		case idx >= 0 && i == idx:
			status = StatusActive
		}
		statuses[i] = StageStatus{Stage: s, Status: status}
	}

	return Report{
		OverallPercent: overall,
		Stages:         statuses,
		Message:        snap.Message,
	}
}
