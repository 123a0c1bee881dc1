// Package stages defines the fixed catalog of remote processing stages and
// the aggregation from per-stage progress snapshots to an overall completion
// percentage.
package stages

// Stage names a phase of remote depth processing. The remote service reports
// one of these with each progress snapshot.
type Stage string

const (
	StageExtractingAudio Stage = "extracting_audio"
	StageReadingFrames   Stage = "reading_frames"
	StageEstimatingDepth Stage = "estimating_depth"
	StageSavingSource    Stage = "saving_source"
	StageSavingDepth     Stage = "saving_depth"
	StageMergingRGBD     Stage = "merging_rgbd"
	StageComplete        Stage = "complete"
)

// order is the authoritative stage sequence. The terminal StageComplete must
// stay last; the aggregation denominator is derived from this slice.
var order = []Stage{
	StageExtractingAudio,
	StageReadingFrames,
	StageEstimatingDepth,
	StageSavingSource,
	StageSavingDepth,
	StageMergingRGBD,
	StageComplete,
}

// Order returns the stage catalog in processing order.
func Order() []Stage {
	out := make([]Stage, len(order))
	copy(out, order)
	return out
}

// Index returns the position of name in the catalog, or -1 when the reported
// stage is unknown. Unknown stages contribute zero progress.
func Index(name string) int {
	for i, s := range order {
		if string(s) == name {
			return i
		}
	}
	return -1
}

// Label renders a stage identifier for display ("reading_frames" -> "Reading frames").
func Label(s Stage) string {
	b := []byte(s)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	if len(b) > 0 && b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
