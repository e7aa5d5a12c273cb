package main

import (
	"github.com/pkg/errors"
)

// Node is one entry of a bucket chain. Callers may change Count through the
// handle returned by InsertOrGet or Lookup; the key and the chain link belong
// to the table.
type Node struct {
	Key   string
	Count int
	next  *Node
}

// Entry is a (key, count) pair yielded by scans.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type tableState uint8

const (
	stateUninitialized tableState = iota
	stateLive
	stateTornDown
)

var (
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
	ErrUninitialized   = errors.New("hash table used before NewHashTable")
	ErrTornDown        = errors.New("hash table used after Teardown")
)

// HashTable is a fixed size hash table with separate chaining. It is never
// resized and does no locking; wrap it in an Engine for shared use.
type HashTable struct {
	buckets  []*Node
	size     int
	capacity int
	hash     HashFunc
	state    tableState
}

type TableOption func(*HashTable)

// WithHashFunc replaces the default Hash31.
func WithHashFunc(fn HashFunc) TableOption {
	return func(t *HashTable) {
		if fn != nil {
			t.hash = fn
		}
	}
}

// NewHashTable allocates a table with capacity buckets.
func NewHashTable(capacity int, opts ...TableOption) (*HashTable, error) {
	if capacity < 1 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}
	t := &HashTable{
		buckets:  make([]*Node, capacity),
		capacity: capacity,
		hash:     Hash31,
		state:    stateLive,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *HashTable) mustBeLive() {
	switch t.state {
	case stateLive:
		return
	case stateTornDown:
		panic(ErrTornDown)
	default:
		panic(ErrUninitialized)
	}
}

func (t *HashTable) index(key string) int {
	return int(t.hash(key) % uint32(t.capacity))
}

// InsertOrGet returns the node holding key. When the key is missing a node
// with count initialCount is prepended to its bucket. An existing node is
// returned as is.
func (t *HashTable) InsertOrGet(key string, initialCount int) *Node {
	t.mustBeLive()
	idx := t.index(key)
	for curr := t.buckets[idx]; curr != nil; curr = curr.next {
		if curr.Key == key {
			return curr
		}
	}
	n := &Node{
		Key:   key,
		Count: initialCount,
		next:  t.buckets[idx],
	}
	t.buckets[idx] = n
	t.size++
	return n
}

func (t *HashTable) Contains(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Lookup returns the node holding key, if any.
func (t *HashTable) Lookup(key string) (*Node, bool) {
	t.mustBeLive()
	for curr := t.buckets[t.index(key)]; curr != nil; curr = curr.next {
		if curr.Key == key {
			return curr, true
		}
	}
	return nil, false
}

// Remove unlinks the node holding key and reports whether there was one.
func (t *HashTable) Remove(key string) bool {
	t.mustBeLive()
	idx := t.index(key)
	var prev *Node
	for curr := t.buckets[idx]; curr != nil; prev, curr = curr, curr.next {
		if curr.Key != key {
			continue
		}
		if prev == nil {
			t.buckets[idx] = curr.next
		} else {
			prev.next = curr.next
		}
		release(curr)
		t.size--
		return true
	}
	return false
}

// Each calls fn for every node whose count is strictly greater than
// threshold, bucket by bucket. Within a bucket the most recently inserted key
// comes first. Iteration stops when fn returns false.
func (t *HashTable) Each(threshold int, fn func(Entry) bool) {
	t.mustBeLive()
	for _, head := range t.buckets {
		for curr := head; curr != nil; curr = curr.next {
			if curr.Count <= threshold {
				continue
			}
			if !fn(Entry{Key: curr.Key, Count: curr.Count}) {
				return
			}
		}
	}
}

// ScanAboveThreshold collects what Each yields. The order is only good for
// display.
func (t *HashTable) ScanAboveThreshold(threshold int) []Entry {
	var entries []Entry
	t.Each(threshold, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

func (t *HashTable) Size() int {
	t.mustBeLive()
	return t.size
}

func (t *HashTable) Capacity() int {
	t.mustBeLive()
	return t.capacity
}

// Teardown releases every chain and the bucket array. The table cannot be
// used afterwards; a second Teardown panics like any other call would.
func (t *HashTable) Teardown() {
	t.mustBeLive()
	for i, head := range t.buckets {
		for head != nil {
			next := head.next
			release(head)
			head = next
		}
		t.buckets[i] = nil
	}
	t.buckets = nil
	t.size = 0
	t.state = stateTornDown
}

// release drops the node's key and link so a handle kept by a caller holds
// nothing of the table.
func release(n *Node) {
	n.Key = ""
	n.next = nil
}
