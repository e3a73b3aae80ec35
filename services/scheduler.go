package services

import (
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/attendance"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/audit"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SyncScheduler drives the recurring background jobs: the daily upstream
// sync per prayer endpoint, the store maintenance sweeps and the monthly
// audit archive.
type SyncScheduler struct {
	cron *cron.Cron
	sync *attendance.SyncService
}

// NewSyncScheduler creates the scheduler with a fresh sync service
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{
		cron: cron.New(),
		sync: attendance.NewSyncService(),
	}
}

// Start registers and launches the cron entries. Ingestion is not expected
// to overlap itself; the natural-key upserts keep an accidental overlap
// duplicate-free.
func (s *SyncScheduler) Start() {
	mustAdd := func(spec string, job func()) {
		if _, err := s.cron.AddFunc(spec, job); err != nil {
			logrus.WithError(err).WithField("spec", spec).Fatal("Failed to register cron job")
		}
	}

	mustAdd("0 3 * * *", s.runDailySync)
	mustAdd("30 3 * * *", s.runMaintenance)
	mustAdd("0 4 1 * *", s.runAuditArchive)

	s.cron.Start()
	logrus.Info("Sync scheduler started")
}

// Stop halts the scheduler
func (s *SyncScheduler) Stop() {
	s.cron.Stop()
}

// runDailySync reconciles every prayer endpoint. One endpoint failing
// (degrading to zero rows) does not affect the others.
func (s *SyncScheduler) runDailySync() {
	for _, endpoint := range upstream.Endpoints {
		s.sync.SyncEndpoint(endpoint)
	}
}

// runMaintenance expires fallback cache rows, sweeps duplicates and
// backfills dates on legacy rows
func (s *SyncScheduler) runMaintenance() {
	s.sync.PurgeExpiredTempRecords()
	s.sync.DedupSweep()
	s.sync.BackfillDates()
}

func (s *SyncScheduler) runAuditArchive() {
	if err := audit.NewArchiveService().ArchiveOldEntries(365); err != nil {
		logrus.WithError(err).Error("Audit archive run failed")
	}
}
