// Package audit implements the append-only audit trail of IPC requests
// (spec §4.7): an in-memory ring buffer backing UI queries and
// statistics, and a periodic flusher that batches new entries into
// per-day JSON-lines files.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arca-vault/arca/arcalog"
	"github.com/arca-vault/arca/vaultmodel"
)

// DefaultBufferSize is the default number of entries kept in memory for
// UI queries and statistics.
const DefaultBufferSize = 1000

// DefaultFlushInterval is how often queued entries are batched to disk.
const DefaultFlushInterval = 5 * time.Second

// Option configures a [Log].
type Option func(*config)

type config struct {
	bufferSize    int
	flushInterval time.Duration
	now           func() time.Time
}

// WithBufferSize overrides the ring buffer's capacity.
func WithBufferSize(n int) Option {
	return func(c *config) { c.bufferSize = n }
}

// WithFlushInterval overrides the flusher's period.
func WithFlushInterval(d time.Duration) Option {
	return func(c *config) { c.flushInterval = d }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Log is the audit subsystem: an in-memory ring buffer plus a
// background flusher that drains newly recorded entries into per-day
// files under dir.
type Log struct {
	dir string
	cfg config

	mu     sync.Mutex
	buffer []vaultmodel.AuditLogEntry // most recent entries, oldest first
	queue  []vaultmodel.AuditLogEntry // pending flush

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open creates a [Log] rooted at dir, reloading the tail of today's
// file (up to the buffer capacity) so a restart does not lose the
// visible window, and starts its background flusher.
func Open(dir string, opts ...Option) (*Log, error) {
	cfg := config{
		bufferSize:    DefaultBufferSize,
		flushInterval: DefaultFlushInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	l := &Log{
		dir:    dir,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	tail, err := readTail(pathForDay(dir, cfg.now()), cfg.bufferSize)
	if err != nil {
		arcalog.WithComponent("audit").Debug().Msgf("failed to reload today's audit tail: %v", err)
	} else {
		l.buffer = tail
	}

	go l.flushLoop()

	return l, nil
}

// Record appends entry to the pending queue and the in-memory ring
// buffer. It never blocks on disk I/O; the flusher drains the queue
// asynchronously.
func (l *Log) Record(entry vaultmodel.AuditLogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.cfg.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.queue = append(l.queue, entry)

	l.buffer = append(l.buffer, entry)
	if len(l.buffer) > l.cfg.bufferSize {
		l.buffer = l.buffer[len(l.buffer)-l.cfg.bufferSize:]
	}
}

// Recent returns a copy of the most recent buffered entries, newest
// last, up to limit (0 means all buffered entries).
func (l *Log) Recent(limit int) []vaultmodel.AuditLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.buffer) {
		limit = len(l.buffer)
	}

	start := len(l.buffer) - limit

	out := make([]vaultmodel.AuditLogEntry, limit)
	copy(out, l.buffer[start:])

	return out
}

// Statistics summarizes the in-memory buffer.
type Statistics struct {
	Total         int
	Successes     int
	Failures      int
	UniqueKeys    int
	UniqueSecrets int
	ByAction      map[string]int
	ByApiKeyName  map[string]int
	TopSecrets    []SecretCount
}

// SecretCount pairs a secret key with its access count for the top-10
// ranking.
type SecretCount struct {
	Key   string
	Count int
}

// Statistics computes [Statistics] over the in-memory buffer.
func (l *Log) Statistics() Statistics {
	l.mu.Lock()
	entries := make([]vaultmodel.AuditLogEntry, len(l.buffer))
	copy(entries, l.buffer)
	l.mu.Unlock()

	stats := Statistics{
		ByAction:     map[string]int{},
		ByApiKeyName: map[string]int{},
	}

	keyNames := map[string]struct{}{}
	secretCounts := map[string]int{}

	for _, e := range entries {
		stats.Total++

		if e.Success {
			stats.Successes++
		} else {
			stats.Failures++
		}

		stats.ByAction[e.Action.String()]++
		stats.ByApiKeyName[e.ApiKeyName]++
		keyNames[e.ApiKeyName] = struct{}{}

		if e.SecretKey != "" {
			secretCounts[e.SecretKey]++
		}
	}

	stats.UniqueKeys = len(keyNames)
	stats.UniqueSecrets = len(secretCounts)
	stats.TopSecrets = topN(secretCounts, 10)

	return stats
}

func topN(counts map[string]int, n int) []SecretCount {
	out := make([]SecretCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, SecretCount{Key: k, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Key < out[j].Key
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

// Close stops the flusher after a final synchronous flush, tolerating
// (and logging) any write failure on the final batch: the file system
// is the only durable sink, and by this point the caller is shutting
// down regardless.
func (l *Log) Close() {
	close(l.stopCh)
	<-l.doneCh

	if err := l.flush(); err != nil {
		arcalog.WithComponent("audit").Debug().Msgf("final audit flush failed: %v", err)
	}
}

func (l *Log) flushLoop() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.cfg.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.flush(); err != nil {
				arcalog.WithComponent("audit").Debug().Msgf("audit flush failed: %v", err)
			}
		case <-l.stopCh:
			return
		}
	}
}

func (l *Log) flush() error {
	l.mu.Lock()
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	byDay := map[string][]vaultmodel.AuditLogEntry{}
	for _, e := range pending {
		day := e.Timestamp.Format("2006-01-02")
		byDay[day] = append(byDay[day], e)
	}

	for day, entries := range byDay {
		if err := appendEntries(filepath.Join(l.dir, "audit-"+day+".json"), entries); err != nil {
			return err
		}
	}

	return nil
}

func appendEntries(path string, entries []vaultmodel.AuditLogEntry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		if _, err := w.Write(data); err != nil {
			return err
		}

		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}

	return w.Flush()
}

func pathForDay(dir string, t time.Time) string {
	return filepath.Join(dir, "audit-"+t.Format("2006-01-02")+".json")
}

func readTail(path string, limit int) ([]vaultmodel.AuditLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}
	defer f.Close()

	var all []vaultmodel.AuditLogEntry

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var e vaultmodel.AuditLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}

		all = append(all, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}

	return all, nil
}
