package main

import (
	"fmt"
	"io"
	"sort"
)

const (
	reportHeader = "\n  Word       Frequency\n"
	reportRule   = "  --------------------\n"
)

// WriteReport renders entries as the two column word/frequency table, in the
// order given.
func WriteReport(w io.Writer, entries []Entry) error {
	if _, err := io.WriteString(w, reportHeader+reportRule); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "  %-14s %d\n", e.Key, e.Count); err != nil {
			return err
		}
	}
	return nil
}

// SortEntries orders entries by count, highest first, then by key. Scan order
// depends on the bucket layout, so anything shown to users across nodes is
// sorted first.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
}

// MergeEntries sums the counts of every batch into a scratch table and returns
// the merged entries above threshold.
func MergeEntries(capacity int, hash HashFunc, threshold int, batches ...[]Entry) ([]Entry, error) {
	t, err := NewHashTable(capacity, WithHashFunc(hash))
	if err != nil {
		return nil, err
	}
	defer t.Teardown()

	for _, batch := range batches {
		for _, e := range batch {
			t.InsertOrGet(e.Key, 0).Count += e.Count
		}
	}
	return t.ScanAboveThreshold(threshold), nil
}
