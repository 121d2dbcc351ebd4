package eventbus

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	BufferSize           = 1024                   // circular buffer size
	MaxEventsPerSec      = 10000                  // global rate limit
	MaxEventsPerPlayer   = 100                    // per-player rate limit per second
	BatchFlushSize       = 64                     // events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // how often to flush
	PlayerLimiterCleanup = 5 * time.Minute        // cleanup interval for player limiters
)

// Log is a bounded, rate-limited event log with backpressure: under load it
// drops the oldest buffered events rather than stalling the tick that
// produces them (spec.md §5 "losing a frame is acceptable, stalling the
// tick is not"). One Log per room; disk writes happen off-tick on a
// dedicated goroutine.
type Log struct {
	buffer    [BufferSize]Event
	writeHead uint64 // atomic, producer position
	readHead  uint64 // atomic, consumer position

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLog creates a bounded event log. Call Start to begin the async writer.
func NewLog() *Log {
	return &Log{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer and limiter-cleanup goroutines. filePath
// may be empty, in which case events are rate-limited and buffered but
// never persisted.
func (el *Log) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the event log, flushing any buffered events.
func (el *Log) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event, subject to global and per-player rate limits. Returns
// false if the event was dropped (rate limited, or buffer-full backpressure
// evicted it before the writer could see it).
func (el *Log) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.PlayerID != "" {
		limiter := el.getPlayerLimiter(event.PlayerID)
		if !limiter.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	head := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)

	if head-tail >= BufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	idx := head % BufferSize
	el.buffer[idx] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds and emits an event in one call.
func (el *Log) EmitSimple(eventType Type, roomID string, tickNum uint64, playerID string, payload interface{}) bool {
	return el.Emit(New(eventType, roomID, tickNum, playerID, payload))
}

func (el *Log) getPlayerLimiter(playerID string) *rate.Limiter {
	if entry, ok := el.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &playerLimiterEntry{
		limiter:  rate.NewLimiter(MaxEventsPerPlayer, MaxEventsPerPlayer/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

func (el *Log) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *Log) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupPlayerLimiters()
		}
	}
}

func (el *Log) cleanupPlayerLimiters() {
	cutoff := time.Now().Add(-PlayerLimiterCleanup)
	el.playerLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*playerLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			el.playerLimiters.Delete(key)
		}
		return true
	})
}

func (el *Log) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		idx := i % BufferSize
		batch = append(batch, el.buffer[idx])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}

	return batch
}

func (el *Log) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// GetStats returns counters useful for monitoring and DoS detection.
func (el *Log) GetStats() map[string]interface{} {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": head - tail,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events.
func (el *Log) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events processed.
func (el *Log) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
