// Package dedup tracks which records have been imported before, keyed by
// content hash, so repeated runs over the same source data can skip rows
// that are already in storage.
package dedup

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// HashLog is an append-only file of content hashes, one per line. The whole
// log is held in memory for membership checks; appends go straight to disk
// so a crashed run never forgets what it already imported. Safe for
// concurrent use.
type HashLog struct {
	mu   sync.RWMutex
	path string
	file *os.File
	seen map[string]struct{}
}

// Open loads the hash log at path, creating it if absent.
func Open(path string) (*HashLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash log: %w", err)
	}

	log := &HashLog{
		path: path,
		file: file,
		seen: make(map[string]struct{}),
	}

	// Accepts newline or comma delimited entries, so logs written by other
	// tooling load the same.
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		for _, hash := range strings.Split(scanner.Text(), ",") {
			if hash = strings.TrimSpace(hash); hash != "" {
				log.seen[hash] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read hash log: %w", err)
	}

	return log, nil
}

// Contains reports whether the hash was recorded before.
func (l *HashLog) Contains(hash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[hash]
	return ok
}

// Append records the hashes, skipping ones already present.
func (l *HashLog) Append(hashes ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, hash := range hashes {
		if hash == "" {
			continue
		}
		if _, ok := l.seen[hash]; ok {
			continue
		}
		if _, err := fmt.Fprintln(l.file, hash); err != nil {
			return fmt.Errorf("failed to append to hash log: %w", err)
		}
		l.seen[hash] = struct{}{}
	}
	return nil
}

// Len returns the number of recorded hashes.
func (l *HashLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seen)
}

// Close flushes and closes the underlying file.
func (l *HashLog) Close() error {
	return l.file.Close()
}
