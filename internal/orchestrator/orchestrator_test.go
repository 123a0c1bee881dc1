package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/depthview/depthview-client/internal/remote"
	"github.com/depthview/depthview-client/internal/results"
	"github.com/depthview/depthview-client/internal/session"
	"github.com/depthview/depthview-client/internal/stages"
)

type processCall struct {
	filename string
	params   session.Params
}

// fakeService scripts the remote surface. Progress serves queued snapshots;
// with the queue empty it fails, which the poller must tolerate. Process
// blocks until release is closed when release is non-nil.
type fakeService struct {
	mu           sync.Mutex
	uploadResult remote.UploadResult
	uploadErr    error
	downloads    remote.Downloads
	processErr   error
	release      chan struct{}
	processCalls []processCall
	snapshots    chan stages.Snapshot
}

func newFakeService() *fakeService {
	return &fakeService{
		uploadResult: remote.UploadResult{Filename: "clip.mp4", SizeMB: 12.3},
		downloads:    remote.Downloads{Src: "/out/a.mp4", Depth: "/out/b.mp4", RGBD: "/out/c.mp4"},
		snapshots:    make(chan stages.Snapshot, 16),
	}
}

func (f *fakeService) Upload(ctx context.Context, filename string, file io.Reader) (remote.UploadResult, error) {
	if f.uploadErr != nil {
		return remote.UploadResult{}, f.uploadErr
	}
	return f.uploadResult, nil
}

func (f *fakeService) Process(ctx context.Context, filename string, params session.Params) (remote.Downloads, error) {
	f.mu.Lock()
	f.processCalls = append(f.processCalls, processCall{filename: filename, params: params})
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.processErr != nil {
		return remote.Downloads{}, f.processErr
	}
	return f.downloads, nil
}

func (f *fakeService) Progress(ctx context.Context) (stages.Snapshot, error) {
	select {
	case snap := <-f.snapshots:
		return snap, nil
	default:
		return stages.Snapshot{}, errors.New("no snapshot available")
	}
}

func (f *fakeService) calls() []processCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]processCall, len(f.processCalls))
	copy(out, f.processCalls)
	return out
}

type recordingListener struct {
	uploaded  chan session.Session
	progress  chan stages.Report
	succeeded chan results.Result
	failed    chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		uploaded:  make(chan session.Session, 16),
		progress:  make(chan stages.Report, 64),
		succeeded: make(chan results.Result, 16),
		failed:    make(chan string, 16),
	}
}

func (l *recordingListener) Uploaded(s session.Session) { l.uploaded <- s }

func (l *recordingListener) Progress(r stages.Report) { l.progress <- r }

func (l *recordingListener) Succeeded(r results.Result) { l.succeeded <- r }

func (l *recordingListener) Failed(msg string) { l.failed <- msg }

func testOrchestrator(t *testing.T, svc remote.Service, listener Listener) *Orchestrator {
	t.Helper()
	return New(Config{
		Service:      svc,
		Listener:     listener,
		Presenter:    results.NewPresenterWithClock(func() time.Time { return time.UnixMilli(99) }),
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		PollInterval: 5 * time.Millisecond,
		NoticeTTL:    80 * time.Millisecond,
	})
}

func validParams() session.Params {
	return session.Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "30"}
}

func waitProgress(t *testing.T, l *recordingListener, wantPercent float64) stages.Report {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case report := <-l.progress:
			if math.Abs(report.OverallPercent-wantPercent) < 1e-6 {
				return report
			}
		case <-deadline:
			t.Fatalf("no progress report with overall %v", wantPercent)
		}
	}
}

func TestFullLifecycle(t *testing.T) {
	svc := newFakeService()
	svc.release = make(chan struct{})
	listener := newRecordingListener()
	o := testOrchestrator(t, svc, listener)

	sess, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("HandleUpload() error = %v", err)
	}
	if sess.Filename != "clip.mp4" || sess.SizeMB != 12.3 {
		t.Errorf("session = %+v", sess)
	}
	if got := o.State(); got != StateConfiguring {
		t.Fatalf("state after upload = %s, want configuring", got)
	}
	<-listener.uploaded

	if err := o.RequestProcessing(context.Background(), validParams()); err != nil {
		t.Fatalf("RequestProcessing() error = %v", err)
	}
	if got := o.State(); got != StatePolling {
		t.Errorf("state while pending = %s, want polling", got)
	}

	// Three scripted snapshots: 20%, 45%, then the terminal 100%.
	svc.snapshots <- stages.Snapshot{Stage: "reading_frames", Progress: 0.2}
	waitProgress(t, listener, (1+0.2)/6*100)

	svc.snapshots <- stages.Snapshot{Stage: "estimating_depth", Progress: 0.7, Message: "Frame 420/600"}
	report := waitProgress(t, listener, (2+0.7)/6*100)
	if report.Message != "Frame 420/600" {
		t.Errorf("message = %q", report.Message)
	}

	svc.snapshots <- stages.Snapshot{Stage: "complete", Progress: 0}
	waitProgress(t, listener, 100)

	close(svc.release)

	var result results.Result
	select {
	case result = <-listener.succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("no success event")
	}

	if got := o.State(); got != StateSucceeded {
		t.Errorf("state = %s, want succeeded", got)
	}
	if result.Source != "/out/a.mp4?t=99" || result.Depth != "/out/b.mp4?t=99" || result.RGBD != "/out/c.mp4?t=99" {
		t.Errorf("cache-busted refs = %+v", result)
	}
	if result.Primary != "/out/c.mp4" {
		t.Errorf("primary = %q", result.Primary)
	}

	calls := svc.calls()
	if len(calls) != 1 {
		t.Fatalf("process calls = %d, want 1", len(calls))
	}
	if calls[0].filename != "clip.mp4" {
		t.Errorf("process filename = %q", calls[0].filename)
	}
	if calls[0].params != validParams() {
		t.Errorf("process params = %+v", calls[0].params)
	}

	// Poller is stopped: further snapshots must not surface.
	svc.snapshots <- stages.Snapshot{Stage: "reading_frames", Progress: 0.9}
	select {
	case report := <-listener.progress:
		t.Errorf("progress after success: %+v", report)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubmitFailureRevertsToConfiguring(t *testing.T) {
	svc := newFakeService()
	svc.processErr = &remote.SubmitError{StatusCode: 500, Detail: "encoder unavailable"}
	listener := newRecordingListener()
	o := testOrchestrator(t, svc, listener)

	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("HandleUpload() error = %v", err)
	}
	if err := o.RequestProcessing(context.Background(), validParams()); err != nil {
		t.Fatalf("RequestProcessing() error = %v", err)
	}

	var msg string
	select {
	case msg = <-listener.failed:
	case <-time.After(2 * time.Second):
		t.Fatal("no failure event")
	}
	if msg != "encoder unavailable" {
		t.Errorf("failure message = %q", msg)
	}

	if got := o.State(); got != StateConfiguring {
		t.Errorf("state = %s, want configuring", got)
	}
	if got := o.Notice(); got != "encoder unavailable" {
		t.Errorf("notice = %q", got)
	}

	// Session and parameters survive for a retry.
	sess := o.Session()
	if sess.Filename != "clip.mp4" || sess.Params != validParams() {
		t.Errorf("session after failure = %+v", sess)
	}

	// The notice dismisses itself after the TTL.
	deadline := time.After(2 * time.Second)
	for o.Notice() != "" {
		select {
		case <-deadline:
			t.Fatal("notice never auto-cleared")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestUploadFailureSurfacesDetail(t *testing.T) {
	svc := newFakeService()
	svc.uploadErr = &remote.UploadError{StatusCode: 400, Detail: "unsupported container"}
	listener := newRecordingListener()
	o := testOrchestrator(t, svc, listener)

	_, err := o.HandleUpload(context.Background(), "clip.avi", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected upload error")
	}

	select {
	case msg := <-listener.failed:
		if msg != "unsupported container" {
			t.Errorf("failure message = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}

	if got := o.State(); got != StateFailed {
		t.Errorf("state = %s, want failed", got)
	}
	if got := o.Notice(); got != "unsupported container" {
		t.Errorf("notice = %q", got)
	}
}

func TestReuploadReplacesSession(t *testing.T) {
	svc := newFakeService()
	o := testOrchestrator(t, svc, NopListener{})

	if _, err := o.HandleUpload(context.Background(), "first.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}

	svc.uploadResult = remote.UploadResult{Filename: "second.mp4", SizeMB: 4.5}
	sess, err := o.HandleUpload(context.Background(), "second.mp4", strings.NewReader("y"))
	if err != nil {
		t.Fatalf("re-upload error = %v", err)
	}

	if sess.Filename != "second.mp4" {
		t.Errorf("filename = %q, want second.mp4", sess.Filename)
	}
	if sess.Params != (session.Params{}) {
		t.Errorf("replaced session carried params: %+v", sess.Params)
	}
}

func TestRequestProcessingRequiresConfiguredSession(t *testing.T) {
	o := testOrchestrator(t, newFakeService(), NopListener{})

	if err := o.RequestProcessing(context.Background(), validParams()); err == nil {
		t.Error("expected error while idle")
	}
	if err := o.RequestProcessing(context.Background(), session.Params{}); err == nil {
		t.Error("expected error for empty parameters")
	}
}

func TestSingleActivePoller(t *testing.T) {
	svc := newFakeService()
	svc.release = make(chan struct{})
	defer close(svc.release)
	o := testOrchestrator(t, svc, NopListener{})

	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	if err := o.RequestProcessing(context.Background(), validParams()); err != nil {
		t.Fatalf("first RequestProcessing() error = %v", err)
	}

	if err := o.RequestProcessing(context.Background(), validParams()); err == nil {
		t.Error("second RequestProcessing must not start a second poller")
	}

	if _, err := o.HandleUpload(context.Background(), "other.mp4", strings.NewReader("y")); err == nil {
		t.Error("upload during processing must be rejected")
	}
}

func TestRequestNewJobResets(t *testing.T) {
	svc := newFakeService()
	o := testOrchestrator(t, svc, NopListener{})

	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}

	o.RequestNewJob()
	if got := o.State(); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
	if o.Session().Active() {
		t.Error("session should be cleared")
	}
}

func TestRequestFileChangeAwaitsUpload(t *testing.T) {
	svc := newFakeService()
	o := testOrchestrator(t, svc, NopListener{})

	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}

	o.RequestFileChange()
	if got := o.State(); got != StateAwaitingUpload {
		t.Errorf("state = %s, want awaiting_upload", got)
	}
	if o.Session().Active() {
		t.Error("session should be cleared")
	}

	// A fresh upload from AwaitingUpload re-enters Configuring.
	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	if got := o.State(); got != StateConfiguring {
		t.Errorf("state = %s, want configuring", got)
	}
}

func TestNavigationAwayDiscardsPendingOutcome(t *testing.T) {
	svc := newFakeService()
	svc.release = make(chan struct{})
	listener := newRecordingListener()
	o := testOrchestrator(t, svc, listener)

	if _, err := o.HandleUpload(context.Background(), "clip.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	if err := o.RequestProcessing(context.Background(), validParams()); err != nil {
		t.Fatalf("RequestProcessing() error = %v", err)
	}

	o.RequestNewJob()
	close(svc.release)

	select {
	case result := <-listener.succeeded:
		t.Errorf("discarded job still completed: %+v", result)
	case <-time.After(100 * time.Millisecond):
	}

	if got := o.State(); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}
