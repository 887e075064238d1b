// Package scheduler runs the periodic monitoring jobs: dashboard inventory
// snapshots plus daily and weekly roll-ups of the output folder.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-dashboard-inspector/internal/config"
	"go-dashboard-inspector/internal/grafana"
	"go-dashboard-inspector/internal/logger"
	"go-dashboard-inspector/pkg/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	dateFormat      = "2006-01-02"
	stampFormat     = "2006-01-02_15-04-05"
	displayFormat   = "2006-01-02 15:04:05"
	dashboardPrefix = "dashboard_summary_"
	jobTimeout      = 2 * time.Minute
)

// DashboardLister is the Grafana call the inventory job needs
type DashboardLister interface {
	ListDashboards(ctx context.Context) ([]grafana.Dashboard, error)
}

// ArtifactWriter writes and lists files in the output folder
type ArtifactWriter interface {
	WriteJSON(name string, v any) (string, error)
	WriteText(name, content string) (string, error)
	List() ([]models.ReportFile, error)
}

// DashboardSummary is the body of dashboard_summary_<ts>.json
type DashboardSummary struct {
	CollectedAt     time.Time           `json:"collected_at"`
	TotalDashboards int                 `json:"total_dashboards"`
	Dashboards      []grafana.Dashboard `json:"dashboards"`
}

// Scheduler owns the cron runner and the jobs registered on it
type Scheduler struct {
	cron   *cron.Cron
	lister DashboardLister
	writer ArtifactWriter
	now    func() time.Time
}

// New registers the three jobs. lister may be nil, in which case the
// dashboard inventory job is not scheduled.
func New(cfg config.SchedulerConfig, lister DashboardLister, writer ArtifactWriter) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s := &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		lister: lister,
		writer: writer,
		now:    time.Now,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (string, error)
		skip bool
	}{
		{"dashboard_summary", cfg.DashboardSummary, s.CollectDashboardInfo, lister == nil},
		{"daily_summary", cfg.DailySummary, s.GenerateDailyReport, false},
		{"weekly_summary", cfg.WeeklySummary, s.GenerateWeeklyReport, false},
	}
	for _, job := range jobs {
		spec := strings.TrimSpace(job.spec)
		if spec == "" || job.skip {
			logger.WithField("job", job.name).Info("Scheduled job disabled")
			continue
		}
		if _, err := s.cron.AddFunc(spec, s.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", spec, job.name, err)
		}
		logger.WithFields(logrus.Fields{"job": job.name, "cron": spec}).Info("Scheduled job registered")
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(ctx context.Context) (string, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		path, err := run(ctx)
		entry := logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start),
		})
		switch {
		case err != nil:
			entry.WithError(err).Error("Scheduled job failed")
		case path == "":
			entry.Info("Scheduled job had nothing to write")
		default:
			entry.WithField("artifact", path).Info("Scheduled job completed")
		}
	}
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling; the returned context is done when running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// CollectDashboardInfo snapshots the Grafana dashboard list
func (s *Scheduler) CollectDashboardInfo(ctx context.Context) (string, error) {
	if s.lister == nil {
		return "", fmt.Errorf("grafana is not configured")
	}
	dashboards, err := s.lister.ListDashboards(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	summary := DashboardSummary{
		CollectedAt:     now,
		TotalDashboards: len(dashboards),
		Dashboards:      dashboards,
	}
	return s.writer.WriteJSON(dashboardPrefix+now.Format(stampFormat)+".json", summary)
}

// GenerateDailyReport lists today's JSON artifacts. Nothing is written when
// there are none.
func (s *Scheduler) GenerateDailyReport(ctx context.Context) (string, error) {
	files, err := s.writer.List()
	if err != nil {
		return "", err
	}

	now := s.now()
	today := now.Format(dateFormat)
	var daily []string
	for _, f := range files {
		if strings.Contains(f.Filename, today) && strings.HasSuffix(f.Filename, ".json") {
			daily = append(daily, f.Filename)
		}
	}
	if len(daily) == 0 {
		return "", nil
	}
	sort.Strings(daily)

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Grafana Monitoring Report - %s\n", today)
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(displayFormat))
	fmt.Fprintf(&b, "Files processed today: %d\n\n", len(daily))
	for _, name := range daily {
		fmt.Fprintf(&b, "- %s\n", name)
	}

	return s.writer.WriteText("daily_summary_"+today+".txt", b.String())
}

// GenerateWeeklyReport counts the artifacts in the output folder by type
func (s *Scheduler) GenerateWeeklyReport(ctx context.Context) (string, error) {
	files, err := s.writer.List()
	if err != nil {
		return "", err
	}

	now := s.now()
	weekOf := now.Format(dateFormat)
	counts := map[string]int{}
	for _, f := range files {
		for _, ext := range []string{".csv", ".txt", ".json"} {
			if strings.HasSuffix(f.Filename, ext) {
				counts[ext]++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly Grafana Monitoring Report - Week of %s\n", weekOf)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(displayFormat))
	fmt.Fprintf(&b, "Total files in output folder: %d\n", len(files))
	fmt.Fprintf(&b, "CSV reports: %d\n", counts[".csv"])
	fmt.Fprintf(&b, "TXT reports: %d\n", counts[".txt"])
	fmt.Fprintf(&b, "JSON reports: %d\n\n", counts[".json"])

	return s.writer.WriteText("weekly_summary_"+weekOf+".txt", b.String())
}
