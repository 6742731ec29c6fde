package metrics

import (
	"sync/atomic"
	"time"
)

type Metrics struct {
	pendingOps        int64
	flushesTotal      int64
	flushFailsTotal   int64
	activeConnections int64
	importedRows      int64
}

var (
	global    = &Metrics{}
	startTime = time.Now()
)

func GetUptime() time.Duration {
	return time.Since(startTime)
}

func SetPendingOps(count int64) {
	atomic.StoreInt64(&global.pendingOps, count)
}

func IncrementFlushes() {
	atomic.AddInt64(&global.flushesTotal, 1)
}

func IncrementFlushFails() {
	atomic.AddInt64(&global.flushFailsTotal, 1)
}

func SetActiveConnections(count int64) {
	atomic.StoreInt64(&global.activeConnections, count)
}

func AddImportedRows(n int64) {
	atomic.AddInt64(&global.importedRows, n)
}

func GetPendingOps() int64 {
	return atomic.LoadInt64(&global.pendingOps)
}

func GetFlushes() int64 {
	return atomic.LoadInt64(&global.flushesTotal)
}

func GetFlushFails() int64 {
	return atomic.LoadInt64(&global.flushFailsTotal)
}

func GetActiveConnections() int64 {
	return atomic.LoadInt64(&global.activeConnections)
}

func GetImportedRows() int64 {
	return atomic.LoadInt64(&global.importedRows)
}

func Reset() {
	atomic.StoreInt64(&global.pendingOps, 0)
	atomic.StoreInt64(&global.flushesTotal, 0)
	atomic.StoreInt64(&global.flushFailsTotal, 0)
	atomic.StoreInt64(&global.activeConnections, 0)
	atomic.StoreInt64(&global.importedRows, 0)
}

// Snapshot returns all counters for the metrics endpoint.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"pending_ops":        GetPendingOps(),
		"flushes_total":      GetFlushes(),
		"flush_fails_total":  GetFlushFails(),
		"active_connections": GetActiveConnections(),
		"imported_rows":      GetImportedRows(),
	}
}
