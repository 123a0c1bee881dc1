// Package orchestrator coordinates the lifecycle of a remote depth
// processing job: upload, parameter configuration, submission, progress
// polling, and outcome handling. It owns the single job state and the single
// progress poller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/depthview/depthview-client/internal/remote"
	"github.com/depthview/depthview-client/internal/results"
	"github.com/depthview/depthview-client/internal/session"
	"github.com/depthview/depthview-client/internal/stages"
)

// State is the orchestrator's lifecycle position. Exactly one is active.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingUpload State = "awaiting_upload"
	StateConfiguring    State = "configuring"
	StateSubmitting     State = "submitting"
	StatePolling        State = "polling"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

const (
	// DefaultPollInterval is the cadence of progress fetches.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultNoticeTTL is how long a surfaced error stays visible before it
	// dismisses itself.
	DefaultNoticeTTL = 8 * time.Second
)

// Listener receives the outbound events a presentation layer is driven by.
// Callbacks are invoked from orchestrator goroutines; implementations must
// be safe for that.
type Listener interface {
	Uploaded(sess session.Session)
	Progress(report stages.Report)
	Succeeded(result results.Result)
	Failed(message string)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) Uploaded(session.Session) {}
func (NopListener) Progress(stages.Report) {}
func (NopListener) Succeeded(results.Result) {}
func (NopListener) Failed(string) {}

// Config wires the orchestrator's collaborators.
type Config struct {
	Service      remote.Service
	Listener     Listener
	Presenter    *results.Presenter
	Logger       *slog.Logger
	PollInterval time.Duration
	NoticeTTL    time.Duration
}

// Orchestrator is the job-lifecycle state machine. All state transitions run
// through it; nothing else starts or stops the poller.
type Orchestrator struct {
	service      remote.Service
	listener     Listener
	presenter    *results.Presenter
	logger       *slog.Logger
	pollInterval time.Duration
	notice       *notice

	mu     sync.Mutex
	state  State
	sess   session.Session
	poller *Poller
}

// New builds an orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	if cfg.Presenter == nil {
		cfg.Presenter = results.NewPresenter()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}

	return &Orchestrator{
		service:      cfg.Service,
		listener:     cfg.Listener,
		presenter:    cfg.Presenter,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		notice:       newNotice(cfg.NoticeTTL),
		state:        StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns a copy of the current job session.
func (o *Orchestrator) Session() session.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// Notice returns the currently surfaced error message, if any.
func (o *Orchestrator) Notice() string {
	return o.notice.current()
}

// HandleUpload submits a file to the service. On success the current session
// is replaced wholesale and the state moves to Configuring. An upload that
// fails leaves any existing session untouched.
func (o *Orchestrator) HandleUpload(ctx context.Context, filename string, file io.Reader) (session.Session, error) {
	o.mu.Lock()
	if o.state == StateSubmitting || o.state == StatePolling {
		o.mu.Unlock()
		return session.Session{}, fmt.Errorf("cannot upload while processing is in progress")
	}
	o.mu.Unlock()

	o.notice.clear()

	result, err := o.service.Upload(ctx, filename, file)
	if err != nil {
		msg := "Upload failed"
		var uploadErr *remote.UploadError
		if errors.As(err, &uploadErr) {
			msg = uploadErr.Detail
		}
		o.logger.Warn("upload failed", "filename", filename, "error", err)

		o.mu.Lock()
		if !o.sess.Active() {
			o.state = StateFailed
		}
		o.mu.Unlock()

		o.notice.set(msg)
		o.listener.Failed(msg)
		return session.Session{}, err
	}

	sess := session.New(result.Filename, result.SizeMB)

	o.mu.Lock()
	o.sess = sess
	o.state = StateConfiguring
	o.mu.Unlock()

	o.logger.Info("session established", "filename", sess.Filename, "size_mb", sess.SizeMB)
	o.listener.Uploaded(sess)
	return sess, nil
}

// RequestProcessing submits the configured job and starts progress polling.
// The poller starts alongside the submission; it does not wait for the
// submit call to return.
func (o *Orchestrator) RequestProcessing(ctx context.Context, params session.Params) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	o.mu.Lock()
	if o.state != StateConfiguring || !o.sess.Active() {
		o.mu.Unlock()
		return fmt.Errorf("no uploaded file is awaiting processing")
	}
	if o.poller != nil {
		o.mu.Unlock()
		return fmt.Errorf("a progress poller is already active")
	}

	o.sess = o.sess.WithParams(params)
	sess := o.sess
	o.state = StateSubmitting

	poller := NewPoller(o.pollInterval, o.service.Progress, o.handleSnapshot)
	o.poller = poller
	o.mu.Unlock()

	o.notice.clear()

	if err := poller.Start(ctx); err != nil {
		// Unreachable for a fresh poller; restore the configuring state.
		o.mu.Lock()
		o.poller = nil
		o.state = StateConfiguring
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.state = StatePolling
	o.mu.Unlock()

	go o.submit(ctx, sess, poller)
	return nil
}

// RequestNewJob discards the session and returns to Idle. It is the only way
// a user abandons a finished or failed job.
func (o *Orchestrator) RequestNewJob() {
	o.stopPolling()
	o.notice.clear()

	o.mu.Lock()
	o.sess = session.Session{}
	o.state = StateIdle
	o.mu.Unlock()
}

// RequestFileChange discards the session and waits for a replacement upload.
func (o *Orchestrator) RequestFileChange() {
	o.stopPolling()
	o.notice.clear()

	o.mu.Lock()
	o.sess = session.Session{}
	o.state = StateAwaitingUpload
	o.mu.Unlock()
}

// submit waits for the processing call to resolve and maps its outcome onto
// the state machine. If the user navigated away while the call was in
// flight, the outcome is discarded.
func (o *Orchestrator) submit(ctx context.Context, sess session.Session, poller *Poller) {
	downloads, err := o.service.Process(ctx, sess.Filename, sess.Params)

	o.mu.Lock()
	if o.poller != poller {
		o.mu.Unlock()
		return
	}
	o.poller = nil
	o.mu.Unlock()

	poller.Stop()

	if err != nil {
		msg := "Processing failed"
		var submitErr *remote.SubmitError
		if errors.As(err, &submitErr) {
			msg = submitErr.Detail
		}
		o.logger.Warn("processing submission failed", "filename", sess.Filename, "error", err)

		// The session and its parameters survive so the user can retry
		// without re-entering anything.
		o.mu.Lock()
		o.state = StateConfiguring
		o.mu.Unlock()

		o.notice.set(msg)
		o.listener.Failed(msg)
		return
	}

	result := o.presenter.Present(downloads)

	o.mu.Lock()
	o.state = StateSucceeded
	o.mu.Unlock()

	o.logger.Info("processing succeeded",
		"filename", sess.Filename,
		"rgbd", result.Primary,
	)
	o.listener.Succeeded(result)
}

// handleSnapshot aggregates one polled snapshot and forwards it.
func (o *Orchestrator) handleSnapshot(snap stages.Snapshot) {
	o.listener.Progress(stages.Aggregate(snap))
}

// stopPolling detaches and stops the active poller, if any. Pending
// submission outcomes attached to it are discarded.
func (o *Orchestrator) stopPolling() {
	o.mu.Lock()
	poller := o.poller
	o.poller = nil
	o.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
}
