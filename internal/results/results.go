// Package results prepares final output references for rendering and
// download.
package results

import (
	"strconv"
	"strings"
	"time"

	"github.com/depthview/depthview-client/internal/remote"
)

// Result carries the presentable references for one finished job. Source,
// Depth, and RGBD carry a shared cache-defeating token so repeated jobs
// against the same filenames are never served from a stale cache; Primary is
// the untokenized merged-output reference offered for download.
type Result struct {
	Source  string
	Depth   string
	RGBD    string
	Primary string
}

// Presenter stamps download references with a time-derived token.
type Presenter struct {
	now func() time.Time
}

// NewPresenter builds a presenter on the wall clock.
func NewPresenter() *Presenter {
	return &Presenter{now: time.Now}
}

// NewPresenterWithClock injects the clock for tests.
func NewPresenterWithClock(now func() time.Time) *Presenter {
	return &Presenter{now: now}
}

// Present converts the service's downloads map into a Result. All three
// references share a single token taken once per call.
func (p *Presenter) Present(d remote.Downloads) Result {
	token := strconv.FormatInt(p.now().UnixMilli(), 10)
	return Result{
		Source:  withToken(d.Src, token),
		Depth:   withToken(d.Depth, token),
		RGBD:    withToken(d.RGBD, token),
		Primary: d.RGBD,
	}
}

func withToken(ref, token string) string {
	if ref == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(ref, "?") {
		sep = "&"
	}
	return ref + sep + "t=" + token
}
