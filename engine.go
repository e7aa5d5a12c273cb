package main

import (
	"io"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Engine serializes access to one HashTable. The table itself has no locking,
// so every surface that can be reached from more than one goroutine (the API
// server, cluster messages) goes through here.
type Engine struct {
	mu     sync.Mutex
	table  *HashTable
	closed bool
}

func CreateEngine(capacity int, hash HashFunc) (*Engine, error) {
	t, err := NewHashTable(capacity, WithHashFunc(hash))
	if err != nil {
		return nil, errors.Wrap(err, "create engine")
	}
	return &Engine{table: t}, nil
}

// Add increases the count of key by delta, creating it at zero first, and
// returns the new count.
func (e *Engine) Add(key string, delta int) int {
	defer metrics.MeasureSince([]string{"engine", "add"}, time.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	n := e.table.InsertOrGet(key, 0)
	n.Count += delta
	metrics.IncrCounter([]string{"engine", "add", "count"}, float32(delta))
	return n.Count
}

func (e *Engine) Read(key string) (int, error) {
	defer metrics.MeasureSince([]string{"engine", "read"}, time.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	n, ok := e.table.Lookup(key)
	if !ok {
		metrics.IncrCounter([]string{"engine", "read", "miss"}, 1)
		return 0, ErrKeyNotFound
	}
	return n.Count, nil
}

// Delete removes key and reports whether it was present.
func (e *Engine) Delete(key string) bool {
	defer metrics.MeasureSince([]string{"engine", "delete"}, time.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	return e.table.Remove(key)
}

// Frequent returns the entries counted more than threshold times.
func (e *Engine) Frequent(threshold int) []Entry {
	defer metrics.MeasureSince([]string{"engine", "frequent"}, time.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	return e.table.ScanAboveThreshold(threshold)
}

// Stream calls fn for every entry above threshold while holding the lock. The
// first error returned by fn stops the walk and is returned.
func (e *Engine) Stream(threshold int, fn func(key string, count int) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	var err error
	e.table.Each(threshold, func(entry Entry) bool {
		err = fn(entry.Key, entry.Count)
		return err == nil
	})
	return err
}

// Ingest tokenizes r into the table. It is not atomic: on error the words
// counted before the failure stay counted, and stats describe them.
func (e *Engine) Ingest(r io.Reader) (IngestStats, error) {
	defer metrics.MeasureSince([]string{"engine", "ingest"}, time.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	stats, err := Ingest(r, e.table)
	metrics.IncrCounter([]string{"engine", "ingest", "tokens"}, float32(stats.Tokens))
	return stats, err
}

func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	return e.table.Size()
}

// Capacity is the bucket count of the underlying table.
func (e *Engine) Capacity() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeOpen()

	return e.table.Capacity()
}

// Close tears the table down. Calling it again is a no-op.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.table.Teardown()
	e.closed = true
}

func (e *Engine) mustBeOpen() {
	if e.closed {
		panic(ErrTornDown)
	}
}
