package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/depthview/depthview-client/internal/console"
	"github.com/depthview/depthview-client/internal/db"
	"github.com/depthview/depthview-client/internal/history"
	"github.com/depthview/depthview-client/internal/logging"
	"github.com/depthview/depthview-client/internal/orchestrator"
	"github.com/depthview/depthview-client/internal/remote"
	"github.com/depthview/depthview-client/internal/results"
	"github.com/depthview/depthview-client/internal/session"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".avi":  {},
	".webm": {},
}

func newRunCommand(cctx *commandContext) *cobra.Command {
	var (
		encoder   string
		inputSize string
		maxRes    string
		targetFPS string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Upload a video, extract its depth map, and download the merged output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			ext := strings.ToLower(filepath.Ext(info.Name()))
			if _, ok := videoExtensions[ext]; !ok {
				return fmt.Errorf("unsupported file extension %q", ext)
			}

			params := session.Params{
				Encoder:   encoder,
				InputSize: inputSize,
				MaxRes:    maxRes,
				TargetFPS: targetFPS,
			}
			if err := params.Validate(); err != nil {
				return err
			}

			cfg, logger, err := cctx.setup()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.DownloadsDir()
			}

			database, err := db.New(cfg.DBPath(), logger)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer database.Close()
			store := history.NewStore(database.Conn())

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client := remote.NewHTTPClient(cctx.serverURL(cfg), logging.WithComponent(logger, "remote"))
			waiter := newOutcomeListener(console.New(cmd.OutOrStdout()))

			orch := orchestrator.New(orchestrator.Config{
				Service:      client,
				Listener:     waiter,
				Presenter:    results.NewPresenter(),
				Logger:       logger,
				PollInterval: cfg.PollInterval(),
				NoticeTTL:    cfg.NoticeTTL(),
			})

			file, err := os.Open(absPath)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			_, err = orch.HandleUpload(runCtx, filepath.Base(absPath), file)
			file.Close()
			if err != nil {
				return err
			}

			start := time.Now()
			if err := orch.RequestProcessing(runCtx, params); err != nil {
				return err
			}

			var result results.Result
			select {
			case out := <-waiter.done:
				if out.err != "" {
					recordRun(runCtx, store, logger, history.Record{
						Filename: filepath.Base(absPath),
						SizeMB:   orch.Session().SizeMB,
						Params:   params,
						Status:   history.StatusFailed,
						Error:    out.err,
						Duration: time.Since(start),
					})
					return errors.New(out.err)
				}
				result = out.result
			case <-runCtx.Done():
				orch.RequestNewJob()
				return runCtx.Err()
			}

			recordRun(runCtx, store, logger, history.Record{
				Filename: filepath.Base(absPath),
				SizeMB:   orch.Session().SizeMB,
				Params:   params,
				Status:   history.StatusSucceeded,
				Downloads: remote.Downloads{
					Src:   stripToken(result.Source),
					Depth: stripToken(result.Depth),
					RGBD:  stripToken(result.RGBD),
				},
				Duration: time.Since(start),
			})

			saved, err := downloadArtifact(runCtx, client, result.Primary, outputDir)
			if err != nil {
				return fmt.Errorf("download output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", saved)
			return nil
		},
	}

	cmd.Flags().StringVar(&encoder, "encoder", "h264", "Output encoder (h264, hevc)")
	cmd.Flags().StringVar(&inputSize, "input-size", "518", "Model input size (256, 384, 518)")
	cmd.Flags().StringVar(&maxRes, "max-res", "1080", "Maximum output resolution (720, 1080, 1440, 2160)")
	cmd.Flags().StringVar(&targetFPS, "target-fps", "30", "Target output frame rate (15, 24, 30, 60)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the downloaded output (defaults to the configured downloads dir)")

	return cmd
}

func recordRun(ctx context.Context, store history.Store, logger *slog.Logger, record history.Record) {
	if _, err := store.Add(ctx, record); err != nil {
		logger.Warn("failed to record job history", "error", err)
	}
}

// downloadArtifact fetches ref from the service and writes it under dir,
// keeping the reference's base filename.
func downloadArtifact(ctx context.Context, client *remote.HTTPClient, ref, dir string) (string, error) {
	body, err := client.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	defer body.Close()

	name := filepath.Base(strings.SplitN(ref, "?", 2)[0])
	dst := filepath.Join(dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", err
	}
	return dst, out.Close()
}

// stripToken removes the cache-defeating t parameter so stored references
// stay stable across runs.
func stripToken(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	q := u.Query()
	q.Del("t")
	u.RawQuery = q.Encode()
	return u.String()
}
