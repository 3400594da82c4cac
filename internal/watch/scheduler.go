package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"entsoe-agent/internal/export"
	"entsoe-agent/internal/market"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Snapshot is one scheduled market-insights run.
type Snapshot struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Insights *market.Insights `json:"insights"`
	File     string           `json:"file,omitempty"`
}

// Scheduler runs market insights on a cron schedule (with seconds field).
type Scheduler struct {
	Cron *cron.Cron

	svc       *market.Service
	countries []string
	hoursBack int
	outputDir string
	logger    *zap.Logger
	ctx       context.Context
}

type Options struct {
	Countries []string
	HoursBack int
	// OutputDir, when set, receives one JSON file per run.
	OutputDir string
}

func NewScheduler(ctx context.Context, svc *market.Service, opts Options, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		svc:       svc,
		countries: opts.Countries,
		hoursBack: opts.HoursBack,
		outputDir: opts.OutputDir,
		logger:    logger,
		ctx:       ctx,
	}
}

// Register adds the insights run under spec, a six-field cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { _, _ = s.RunNow() }); err != nil {
		return fmt.Errorf("register watch task %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Strings("countries", s.countries), zap.Int("hours_back", s.hoursBack))
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes one run immediately.
func (s *Scheduler) RunNow() (*Snapshot, error) {
	snap := &Snapshot{RunID: uuid.New().String(), Started: s.svc.Calculator().Now()}
	log := s.logger.With(zap.String("run_id", snap.RunID))
	log.Info("running market insights")

	snap.Insights = s.svc.MarketInsights(s.ctx, s.countries, s.hoursBack)
	snap.Finished = s.svc.Calculator().Now()

	log.Info("market insights finished",
		zap.Int("countries_with_data", snap.Insights.MarketOverview.CountriesWithData),
		zap.Int("countries_analyzed", snap.Insights.MarketOverview.TotalCountriesAnalyzed),
		zap.Strings("key_insights", snap.Insights.KeyInsights),
		zap.Duration("took", snap.Finished.Sub(snap.Started)))

	if s.outputDir == "" {
		return snap, nil
	}
	name := fmt.Sprintf("insights_%s_%s.json", snap.Started.Format("20060102T150405"), snap.RunID[:8])
	snap.File = filepath.Join(s.outputDir, name)
	if err := export.SaveJSON(snap.File, snap); err != nil {
		log.Error("write snapshot", zap.String("file", snap.File), zap.Error(err))
		return snap, err
	}
	return snap, nil
}
