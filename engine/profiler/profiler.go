package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/frame"
)

// BufferStats reports device buffer activity. device.MemoryDevice stats and custom devices can
// be adapted to it.
type BufferStats interface {
	// UploadedBytes returns the total bytes uploaded to the device so far.
	UploadedBytes() int
}

// Profiler logs frame rate, heap statistics and upload throughput once per second.
type Profiler struct {
	fps            frame.FPSCounter
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastTick       time.Time

	buffers       BufferStats
	lastUploaded  int
	lastReportFPS int
}

// NewProfiler creates a Profiler.
//
// Parameters:
//   - buffers: optional upload counter to include in the report, may be nil
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(buffers BufferStats) *Profiler {
	return &Profiler{buffers: buffers}
}

// FPS returns the frame rate of the last completed second.
func (p *Profiler) FPS() int {
	return p.lastReportFPS
}

// Tick counts one frame and logs statistics when a second has completed.
// Statistics include FPS, heap usage, allocation rate, GC pauses and upload rate.
//
// Parameters:
//   - now: the frame time
//
// Returns:
//   - bool: true if stats were logged this tick
func (p *Profiler) Tick(now time.Time) bool {
	fps, ok := p.fps.Tick(now)
	if !ok {
		return false
	}
	p.lastReportFPS = fps

	elapsed := time.Second
	if !p.lastTick.IsZero() {
		elapsed = now.Sub(p.lastTick)
	}
	p.lastTick = now

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	attrs := []any{
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB,
	}
	if p.buffers != nil {
		uploaded := p.buffers.UploadedBytes()
		attrs = append(attrs, "upload_kb_s", float64(uploaded-p.lastUploaded)/1024/elapsed.Seconds())
		p.lastUploaded = uploaded
	}
	common.Logger().Info("profiler", attrs...)

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
