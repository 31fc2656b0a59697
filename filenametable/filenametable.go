// Package filenametable loads a project's file-name dictionary: a
// plain-text or zstd-compressed list of archive-relative paths, one
// per line, used to resolve an entry's 64-bit path hash back to a
// human-readable name. The archive itself stores only hashes.
package filenametable

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/rpcpool/go-pak/hasher"
)

// zstdMagic is the 4-byte frame magic identifying a compressed list
// file.
var zstdMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}

const shardCount = 16

// Table maps a path's mixed 64-bit hash to its original name. It is
// safe for concurrent reads after construction; Load populates it
// concurrently across CPUs via a sharded-mutex map to avoid one
// global lock serializing every line.
type Table struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	names map[uint64]string
}

func newTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].names = make(map[uint64]string)
	}
	return t
}

func (t *Table) shardFor(hash uint64) *shard {
	return &t.shards[hash%shardCount]
}

// Insert records name under its mixed hash, replacing any existing
// entry for a colliding hash (last write wins, matching concurrent
// insertion order is otherwise unspecified).
func (t *Table) Insert(name string) {
	h := hasher.HashMixed(name)
	s := t.shardFor(h)
	s.mu.Lock()
	s.names[h] = name
	s.mu.Unlock()
}

// Lookup returns the name registered under hash, if any.
func (t *Table) Lookup(hash uint64) (string, bool) {
	s := t.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[hash]
	return name, ok
}

// Len returns the number of distinct names currently stored.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		n += len(t.shards[i].names)
		t.shards[i].mu.Unlock()
	}
	return n
}

// LoadFile reads a file-name list from path, transparently
// decompressing it if it carries a zstd frame magic.
func LoadFile(ctx context.Context, path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file list %s: %w", path, err)
	}
	return Load(ctx, raw)
}

// Load parses a file-name list already resident in memory: zstd-sniffed,
// UTF-8 validated, split into lines, comments and blanks skipped, and
// backslashes normalized to forward slashes, inserted into the
// returned Table in parallel.
func Load(ctx context.Context, raw []byte) (*Table, error) {
	text, err := decodeListBytes(raw)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")
	t := newTable()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	const batchSize = 2048
	for start := 0; start < len(lines); start += batchSize {
		end := min(start+batchSize, len(lines))
		batch := lines[start:end]
		g.Go(func() error {
			for _, line := range batch {
				insertLine(t, line)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func insertLine(t *Table, line string) {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	line = strings.ReplaceAll(line, "\\", "/")
	t.Insert(line)
}

func decodeListBytes(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, zstdMagic[:]) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return "", fmt.Errorf("open zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return "", fmt.Errorf("decompress file list: %w", err)
		}
		raw = out
	}
	if !utf8.Valid(raw) {
		return "", &InvalidEncodingError{}
	}
	return string(raw), nil
}

// InvalidEncodingError reports a file-name list whose decompressed
// bytes aren't valid UTF-8.
type InvalidEncodingError struct{}

func (e *InvalidEncodingError) Error() string {
	return "file name list is not valid UTF-8"
}
