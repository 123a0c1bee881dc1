package stub

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/depthview/depthview-client/internal/stages"
)

// service holds the stub's on-disk stores and the current progress
// snapshot. One job runs at a time, mirroring the real service's
// single-slot processing model.
type service struct {
	uploadsDir string
	outputsDir string
	stepDelay  time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	current ProgressResponse
	busy    bool
}

func newService(dataDir string, stepDelay time.Duration, logger *slog.Logger) (*service, error) {
	uploadsDir := filepath.Join(dataDir, "uploads")
	outputsDir := filepath.Join(dataDir, "outputs")
	for _, dir := range []string{uploadsDir, outputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return &service{
		uploadsDir: uploadsDir,
		outputsDir: outputsDir,
		stepDelay:  stepDelay,
		logger:     logger,
		current:    ProgressResponse{Stage: "idle", Progress: 0},
	}, nil
}

func (s *service) storeUpload(filename string, file multipart.File) (UploadResponse, error) {
	name := filepath.Base(filename)
	dst, err := os.Create(filepath.Join(s.uploadsDir, name))
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("store upload: %w", err)
	}

	s.logger.Info("stored upload", "filename", name, "bytes", written)
	return UploadResponse{
		Filename: name,
		SizeMB:   float64(written) / (1024 * 1024),
	}, nil
}

// run walks the stage table front to back, advancing the in-stage
// fraction in steps so a polling client observes intermediate values,
// then produces the three output artifacts by copying the input.
func (s *service) run(filename string) (DownloadsResponse, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return DownloadsResponse{}, fmt.Errorf("a job is already in progress")
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	input := filepath.Join(s.uploadsDir, filepath.Base(filename))
	if _, err := os.Stat(input); err != nil {
		s.setProgress("idle", 0, "")
		return DownloadsResponse{}, fmt.Errorf("file %q has not been uploaded", filename)
	}

	for _, stage := range stages.Order() {
		if stage == stages.StageComplete {
			break
		}
		for _, frac := range []float64{0, 0.25, 0.5, 0.75} {
			s.setProgress(string(stage), frac, stages.Label(stage))
			time.Sleep(s.stepDelay)
		}
	}

	downloads, err := s.writeOutputs(input)
	if err != nil {
		s.setProgress("idle", 0, "")
		return DownloadsResponse{}, err
	}

	s.setProgress(string(stages.StageComplete), 1, "Done")
	return downloads, nil
}

func (s *service) writeOutputs(input string) (DownloadsResponse, error) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ext := filepath.Ext(input)

	names := DownloadsResponse{
		Src:   base + "_src" + ext,
		Depth: base + "_depth" + ext,
		RGBD:  base + "_rgbd" + ext,
	}

	for _, name := range []string{names.Src, names.Depth, names.RGBD} {
		if err := copyFile(input, filepath.Join(s.outputsDir, name)); err != nil {
			return DownloadsResponse{}, fmt.Errorf("write output %s: %w", name, err)
		}
	}

	return DownloadsResponse{
		Src:   "/outputs/" + names.Src,
		Depth: "/outputs/" + names.Depth,
		RGBD:  "/outputs/" + names.RGBD,
	}, nil
}

func (s *service) setProgress(stage string, progress float64, message string) {
	s.mu.Lock()
	s.current = ProgressResponse{Stage: stage, Progress: progress, Message: message}
	s.mu.Unlock()
}

func (s *service) progress() ProgressResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
