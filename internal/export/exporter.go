package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/sync/errgroup"

	"github.com/shrimpsizemoose/gradebook/internal/metrics"
)

// BoardSource renders the grade board of a course as an xlsx file.
type BoardSource interface {
	GradeBoard(ctx context.Context, courseID string) ([]byte, error)
}

type ExporterConfig struct {
	Schedule  string
	OutputDir string
	Courses   []string
	Timeout   time.Duration
}

// Exporter periodically writes the grade boards of configured courses to
// files in OutputDir.
type Exporter struct {
	config    ExporterConfig
	source    BoardSource
	scheduler *gocron.Scheduler
}

func NewExporter(config ExporterConfig, source BoardSource) (*Exporter, error) {
	if config.Schedule == "" {
		return nil, fmt.Errorf("export schedule is not specified")
	}
	if config.OutputDir == "" {
		return nil, fmt.Errorf("export output dir is not specified")
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	return &Exporter{
		config:    config,
		source:    source,
		scheduler: gocron.NewScheduler(time.UTC),
	}, nil
}

func (e *Exporter) Start() error {
	_, err := e.scheduler.Cron(e.config.Schedule).Do(func() {
		ctx := context.Background()
		if e.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
			defer cancel()
		}
		if err := e.ExportAll(ctx); err != nil {
			logger.Error.Printf("Export failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}

	e.scheduler.StartAsync()
	return nil
}

func (e *Exporter) Stop() {
	e.scheduler.Stop()
}

// ExportAll exports every configured course. The first failure is
// returned after all exports finished.
func (e *Exporter) ExportAll(ctx context.Context) error {
	var g errgroup.Group
	for _, course := range e.config.Courses {
		course := course
		g.Go(func() error {
			path, err := e.Export(ctx, course)
			if err != nil {
				metrics.BoardExports.WithLabelValues("failed").Inc()
				return fmt.Errorf("course %s: %w", course, err)
			}
			metrics.BoardExports.WithLabelValues("ok").Inc()
			logger.Info.Printf("Exported grade board of %s to %s", course, path)
			return nil
		})
	}
	return g.Wait()
}

// Export writes one course's board. The file is replaced atomically.
func (e *Exporter) Export(ctx context.Context, courseID string) (string, error) {
	data, err := e.source.GradeBoard(ctx, courseID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.config.OutputDir, fmt.Sprintf("%s-grade-board.xlsx", courseID))
	tmp, err := os.CreateTemp(e.config.OutputDir, ".board-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write board: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write board: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move board into place: %w", err)
	}
	return path, nil
}
