// Package console renders job events for a terminal: a live progress bar
// with a stage strip on a TTY, plain lines otherwise, and tables for
// results and history.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/depthview/depthview-client/internal/results"
	"github.com/depthview/depthview-client/internal/session"
	"github.com/depthview/depthview-client/internal/stages"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"

	barWidth = 30
)

// Console implements orchestrator.Listener. Progress events rewrite a single
// line on a TTY; on a pipe each event becomes its own line so logs stay
// readable.
type Console struct {
	out      io.Writer
	tty      bool
	colorize bool

	mu          sync.Mutex
	lineActive  bool
	lastPercent int
}

func New(out io.Writer) *Console {
	tty := isTerminal(out)
	return &Console{
		out:         out,
		tty:         tty,
		colorize:    tty,
		lastPercent: -1,
	}
}

func (c *Console) Uploaded(sess session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	fmt.Fprintf(c.out, "Uploaded %s (%.1f MB)\n", sess.Filename, sess.SizeMB)
}

func (c *Console) Progress(report stages.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tty {
		fmt.Fprintf(c.out, "\r\x1b[2K%s", c.renderBar(report))
		c.lineActive = true
		return
	}

	// Without a terminal, only emit when the integer percentage moves.
	percent := int(report.OverallPercent)
	if percent == c.lastPercent {
		return
	}
	c.lastPercent = percent
	fmt.Fprintf(c.out, "progress %3d%%  %s\n", percent, activeLabel(report))
}

func (c *Console) Succeeded(result results.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()

	done := "Processing complete"
	if c.colorize {
		done = ansiGreen + done + ansiReset
	}
	fmt.Fprintln(c.out, done)
	fmt.Fprintln(c.out, renderDownloads(result))
}

func (c *Console) Failed(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()

	line := "Error: " + message
	if c.colorize {
		line = ansiRed + line + ansiReset
	}
	fmt.Fprintln(c.out, line)
}

// endLine finishes a pending progress line before other output.
func (c *Console) endLine() {
	if c.lineActive {
		fmt.Fprintln(c.out)
		c.lineActive = false
	}
}

func (c *Console) renderBar(report stages.Report) string {
	filled := int(report.OverallPercent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %5.1f%%", bar, report.OverallPercent)
	if label := activeLabel(report); label != "" {
		b.WriteString("  ")
		if c.colorize {
			b.WriteString(ansiYellow + label + ansiReset)
		} else {
			b.WriteString(label)
		}
	}
	b.WriteString("  ")
	b.WriteString(stageStrip(report.Stages))
	return b.String()
}

func activeLabel(report stages.Report) string {
	for _, st := range report.Stages {
		if st.Status == stages.StatusActive {
			return stages.Label(st.Stage)
		}
	}
	if report.OverallPercent >= 100 {
		return stages.Label(stages.StageComplete)
	}
	return ""
}

// stageStrip renders one marker per working stage: x done, o active, . pending.
func stageStrip(statuses []stages.StageStatus) string {
	var b strings.Builder
	for _, st := range statuses {
		if st.Stage == stages.StageComplete {
			continue
		}
		switch st.Status {
		case stages.StatusDone:
			b.WriteByte('x')
		case stages.StatusActive:
			b.WriteByte('o')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
