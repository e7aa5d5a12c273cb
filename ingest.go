package main

import (
	"bufio"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MaxTokenSize bounds a single whitespace delimited token. Longer tokens fail
// the ingest instead of being split.
const MaxTokenSize = 64 * 1024

// Counter is the part of the table the ingest loop needs.
type Counter interface {
	InsertOrGet(key string, initialCount int) *Node
}

type IngestStats struct {
	Tokens  int64 `json:"tokens"`
	Skipped int64 `json:"skipped"`
	Bytes   int64 `json:"bytes"`
}

func (s IngestStats) String() string {
	return humanize.Comma(s.Tokens) + " words, " +
		humanize.Comma(s.Skipped) + " skipped, " +
		humanize.Bytes(uint64(s.Bytes))
}

// Ingest reads whitespace delimited tokens from r, normalizes them and counts
// each one in c. A word is inserted with count 1 and then incremented, which
// is how the frequency reports have always been computed.
func Ingest(r io.Reader, c Counter) (IngestStats, error) {
	var stats IngestStats
	cr := &countingReader{r: r}
	scanner := bufio.NewScanner(cr)
	scanner.Buffer(make([]byte, 0, 4096), MaxTokenSize)
	scanner.Split(bufio.ScanWords)

	for scanner.Scan() {
		word := NormalizeToken(scanner.Text())
		if word == "" {
			stats.Skipped++
			continue
		}
		c.InsertOrGet(word, 1).Count++
		stats.Tokens++
	}
	stats.Bytes = cr.n
	if err := scanner.Err(); err != nil {
		return stats, errors.Wrap(err, "scan tokens")
	}
	return stats, nil
}

// IngestFile is Ingest over the file at path.
func IngestFile(path string, c Counter) (IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestStats{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	stats, err := Ingest(f, c)
	if err != nil {
		return stats, errors.Wrapf(err, "ingest %s", path)
	}
	log.Infof("Ingested %s: %s", path, stats)
	return stats, nil
}

// NormalizeToken strips one trailing punctuation character.
func NormalizeToken(tok string) string {
	if n := len(tok); n > 0 && isPunct(tok[n-1]) {
		return tok[:n-1]
	}
	return tok
}

// isPunct matches the C locale ispunct: printable ASCII that is neither a
// letter, a digit nor a space.
func isPunct(b byte) bool {
	switch {
	case b <= ' ' || b >= 0x7f:
		return false
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return false
	}
	return true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
