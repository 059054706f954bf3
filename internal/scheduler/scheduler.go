package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

// Job is a single refresh task run on every tick.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// DatasetJob reloads a climate dataset from src.
func DatasetJob(service *climate.Service, name string, src climate.RecordSource, fields climate.Fields) Job {
	return Job{
		Name: "dataset/" + name,
		Run: func(ctx context.Context) error {
			_, err := service.RefreshDataset(ctx, name, src, fields)
			return err
		},
	}
}

// WildfireJob reloads the wildfire perimeter snapshot.
func WildfireJob(service *wildfire.Service) Job {
	return Job{
		Name: "wildfires",
		Run: func(ctx context.Context) error {
			_, err := service.Refresh(ctx)
			return err
		},
	}
}

// Scheduler periodically refreshes datasets and wildfire perimeters.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds each job of a run.
func New(interval, timeout time.Duration, jobs ...Job) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		jobs:      jobs,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the refresh and starts the underlying scheduler. The first
// run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		glog.Info("scheduler: no jobs configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		_ = s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce runs every job concurrently and waits for all of them. It returns
// the first job error; a failing job does not cancel the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()
	started := time.Now()
	glog.Infof("scheduler: run %s starting %d jobs", runID, len(s.jobs))

	var g errgroup.Group
	for _, job := range s.jobs {
		g.Go(func() error {
			jobCtx := ctx
			if s.timeout > 0 {
				var cancel context.CancelFunc
				jobCtx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}

			if err := job.Run(jobCtx); err != nil {
				glog.Errorf("scheduler: run %s job %s failed: %v", runID, job.Name, err)
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			glog.V(2).Infof("scheduler: run %s job %s done", runID, job.Name)
			return nil
		})
	}
	err := g.Wait()

	glog.Infof("scheduler: run %s completed in %s", runID, time.Since(started).Round(time.Millisecond))
	return err
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
