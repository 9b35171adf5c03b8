package scheduler

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clipforge/clipforge/internal/repository"
)

// Maintenance runs the periodic housekeeping the pipeline needs but no
// stage owns: sweeping stale tmp artifacts and flagging runs that have
// been stuck in a non-terminal stage for too long.
type Maintenance struct {
	cron      *cron.Cron
	runs      *repository.PipelineRepository
	tmpDir    string
	retention time.Duration
}

func NewMaintenance(runs *repository.PipelineRepository, tmpDir string, retention time.Duration) *Maintenance {
	return &Maintenance{
		cron:      cron.New(),
		runs:      runs,
		tmpDir:    tmpDir,
		retention: retention,
	}
}

func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("*/10 * * * *", m.sweepTmp); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("*/30 * * * *", m.reportStaleRuns); err != nil {
		return err
	}
	m.cron.Start()
	log.Printf("[maintenance] started (tmp=%s, retention=%s)", m.tmpDir, m.retention)
	return nil
}

func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("[maintenance] stopped")
}

// sweepTmp removes working files older than the retention window. Files
// still being written by an active stage are newer than the cutoff and
// survive the sweep.
func (m *Maintenance) sweepTmp() {
	cutoff := time.Now().Add(-m.retention)
	entries, err := os.ReadDir(m.tmpDir)
	if err != nil {
		log.Printf("[maintenance] tmp sweep read error: %v", err)
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.tmpDir, entry.Name())); err != nil {
			log.Printf("[maintenance] failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[maintenance] swept %d tmp file(s)", removed)
	}
}

// reportStaleRuns logs runs stuck in a non-terminal stage past the
// retention window. Redelivery dedup means a stuck run is safe to
// re-trigger manually, so this only reports and never mutates.
func (m *Maintenance) reportStaleRuns() {
	if m.runs == nil {
		return
	}
	stale, err := m.runs.ListStale(time.Now().Add(-m.retention))
	if err != nil {
		log.Printf("[maintenance] stale run query error: %v", err)
		return
	}
	for _, run := range stale {
		log.Printf("[maintenance] run %s stuck in %s since %s", run.VideoID, run.Stage, run.UpdatedAt.Format(time.RFC3339))
	}
}
