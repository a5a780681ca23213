package services

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// SweepScheduler runs the overdue sweep on a cron schedule
type SweepScheduler struct {
	sweep *SweepService
	spec  string
	cron  *cron.Cron
}

// NewSweepScheduler creates a scheduler for the given cron spec
func NewSweepScheduler(sweep *SweepService, spec string) *SweepScheduler {
	return &SweepScheduler{sweep: sweep, spec: spec}
}

// Start registers the sweep job and launches the cron loop
func (s *SweepScheduler) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.sweep.Run(context.Background()); err != nil {
			log.Printf("❌ Scheduled sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("🚀 Sweep scheduler started [%s]", s.spec)
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish
func (s *SweepScheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Sweep scheduler stopped")
}
