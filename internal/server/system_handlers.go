package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/modelgate/internal/database"
	"github.com/aristath/modelgate/internal/scheduler"
	"github.com/aristath/modelgate/internal/version"
)

// SystemHandlers serves system status, database stats, and manual job triggers.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	startTime time.Time

	mu   sync.RWMutex
	jobs map[string]scheduler.Job
	runs map[string]jobRun
}

// jobRun records the outcome of the most recent manual or scheduled trigger
type jobRun struct {
	LastRun    time.Time
	LastStatus string
}

// SystemStatusResponse is the payload for GET /api/system/status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	GoVersion     string  `json:"go_version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Timestamp     string  `json:"timestamp"`
}

// DBInfo describes one database file on disk
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// DatabaseStatsResponse is the payload for GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DiskUsageResponse is the payload for GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	StagingMB float64 `json:"backup_staging_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// JobInfo describes one registered job
type JobInfo struct {
	Name       string `json:"name"`
	LastRun    string `json:"last_run,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
}

// JobsStatusResponse is the payload for GET /api/system/jobs
type JobsStatusResponse struct {
	TotalJobs int       `json:"total_jobs"`
	Jobs      []JobInfo `json:"jobs"`
}

// NewSystemHandlers creates system handlers over the given databases
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases []*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		databases: databases,
		startTime: time.Now(),
		jobs:      make(map[string]scheduler.Job),
		runs:      make(map[string]jobRun),
	}
}

// SetJobs registers job instances for manual triggering.
// A nil job (e.g. backups disabled) is simply not registered.
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		h.jobs[job.Name()] = job
	}
}

// HandleSystemStatus returns process health and resource usage
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	h.writeJSON(w, SystemStatusResponse{
		Status:        "ok",
		Version:       version.String(),
		GoVersion:     runtime.Version(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats returns per-database file sizes
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	infos := make([]DBInfo, 0, len(h.databases))
	totalSizeMB := 0.0

	for _, db := range h.databases {
		if db == nil {
			continue
		}
		sizeMB := 0.0
		if info, err := os.Stat(db.Path()); err == nil {
			sizeMB = float64(info.Size()) / 1024 / 1024
		}
		totalSizeMB += sizeMB
		infos = append(infos, DBInfo{
			Name:   db.Name(),
			Path:   db.Path(),
			SizeMB: sizeMB,
		})
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Databases:   infos,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns data directory usage
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataDirSize := h.getDirSize(h.dataDir)
	stagingSize := h.getDirSize(filepath.Join(h.dataDir, "backup-staging"))

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB: dataDirSize,
		StagingMB: stagingSize,
		TotalMB:   dataDirSize,
	})
}

// HandleJobsStatus lists registered jobs and their last trigger outcomes
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(h.jobs))
	for name := range h.jobs {
		info := JobInfo{Name: name}
		if run, ok := h.runs[name]; ok {
			info.LastRun = run.LastRun.Format(time.RFC3339)
			info.LastStatus = run.LastStatus
		}
		jobs = append(jobs, info)
	}

	h.writeJSON(w, JobsStatusResponse{
		TotalJobs: len(jobs),
		Jobs:      jobs,
	})
}

// HandleTriggerTrackerSync triggers an immediate tracker sync
func (h *SystemHandlers) HandleTriggerTrackerSync(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, "tracker_sync")
}

// HandleTriggerRampEvaluation triggers an immediate ramp evaluation
func (h *SystemHandlers) HandleTriggerRampEvaluation(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, "ramp_evaluation")
}

// HandleTriggerCacheCleanup triggers an immediate cache cleanup
func (h *SystemHandlers) HandleTriggerCacheCleanup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, "cache_cleanup")
}

// HandleTriggerOutcomeRetention triggers an immediate outcome purge
func (h *SystemHandlers) HandleTriggerOutcomeRetention(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, "outcome_retention")
}

// HandleTriggerBackup triggers an immediate backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, "backup")
}

// triggerJob runs a registered job in the background and returns immediately
func (h *SystemHandlers) triggerJob(w http.ResponseWriter, name string) {
	h.mu.RLock()
	job, ok := h.jobs[name]
	h.mu.RUnlock()
	if !ok {
		h.writeJSONStatus(w, http.StatusNotFound, map[string]string{"status": "error", "message": name + " job not registered"})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	go func() {
		status := "success"
		if err := job.Run(); err != nil {
			status = "error: " + err.Error()
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
		h.mu.Lock()
		h.runs[name] = jobRun{LastRun: time.Now(), LastStatus: status}
		h.mu.Unlock()
	}()

	h.writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "triggered", "job": name})
}

// getSystemStats returns CPU and RAM usage percentages.
// Uses a 100ms CPU sample so the status endpoint stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
