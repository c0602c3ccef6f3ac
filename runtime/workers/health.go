package workers

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	_ "github.com/shirou/gopsutil"
	"github.com/shirou/gopsutil/process"

	"chat-relay/registry"
	"chat-relay/runtime"
)

// HealthSnapshot is the last collected view of the relay process.
type HealthSnapshot struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	Sessions      int       `json:"sessions"`
	Channels      int       `json:"channels"`
	CPUPercent    float64   `json:"cpuPercent"`
	RAMPercent    float32   `json:"ramPercent"`
	CollectedAt   time.Time `json:"collectedAt"`
}

// HealthWorker samples the relay's own process metrics and counters on
// a fixed interval. The HTTP health endpoint reads the latest snapshot
// instead of probing on every request.
type HealthWorker struct {
	mu             sync.Mutex
	log            *slog.Logger
	registry       *registry.Registry
	channels       *runtime.ChannelStore
	metricInterval time.Duration
	started        time.Time
	current        HealthSnapshot
}

func NewHealthWorker(
	log *slog.Logger,
	reg *registry.Registry,
	channels *runtime.ChannelStore,
	metricInterval time.Duration,
) *HealthWorker {
	return &HealthWorker{
		log:            log,
		registry:       reg,
		channels:       channels,
		metricInterval: metricInterval,
		started:        time.Now(),
		current:        HealthSnapshot{Status: "starting"},
	}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Error("Error while retrieving own process", "err", err)
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	w.collect(proc)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			w.collect(proc)
		}
	}
}

func (w *HealthWorker) collect(proc *process.Process) {
	snapshot := HealthSnapshot{
		Status:        "up",
		UptimeSeconds: int64(time.Since(w.started).Seconds()),
		Sessions:      w.registry.Count(),
		Channels:      w.channels.Count(),
		CollectedAt:   time.Now().UTC(),
	}

	if cpu, err := proc.CPUPercent(); err != nil {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	} else {
		snapshot.CPUPercent = cpu
	}
	if ram, err := proc.MemoryPercent(); err != nil {
		w.log.Debug("Error while finding process ram usage", "err", err)
	} else {
		snapshot.RAMPercent = ram
	}

	w.mu.Lock()
	w.current = snapshot
	w.mu.Unlock()
}

// Snapshot returns the latest collected sample.
func (w *HealthWorker) Snapshot() HealthSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
