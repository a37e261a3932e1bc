// Package idtag implements component A, the tag/id-token cache: a
// process-wide singleton over id-tag files that serves RANDOM/
// ROUND_ROBIN/CONNECTOR_AFFINITY distribution and invalidates its cached
// entries when the backing file changes on disk.
package idtag

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Distribution selects how getIdTag picks an index into a file's tag list.
type Distribution string

const (
	Random            Distribution = "RANDOM"
	RoundRobin        Distribution = "ROUND_ROBIN"
	ConnectorAffinity Distribution = "CONNECTOR_AFFINITY"
)

type fileEntry struct {
	mu              sync.Mutex
	tags            []string
	roundRobinIndex map[string]int // keyed by station hashId
}

// Cache is the process-wide singleton over loaded tag files.
type Cache struct {
	mu      sync.Mutex
	files   map[string]*fileEntry
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

var (
	singleton     *Cache
	singletonOnce sync.Once
)

// Global returns the process-wide Cache, starting its file watcher on
// first use.
func Global(log *slog.Logger) *Cache {
	singletonOnce.Do(func() {
		if log == nil {
			log = slog.Default()
		}
		singleton = &Cache{files: make(map[string]*fileEntry), log: log}
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("idtag: file watcher unavailable", "error", err)
			return
		}
		singleton.watcher = w
		go singleton.watchLoop()
	})
	return singleton
}

func (c *Cache) watchLoop() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.invalidate(ev.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("idtag: watcher error", "error", err)
		}
	}
}

func (c *Cache) invalidate(path string) {
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
	c.log.Info("idtag: invalidated cached tags after file change", "path", path)
}

// entryFor returns the fileEntry for path, loading it from disk on first
// access. Parse failure is logged and an empty tag list is cached, per §4.A.
func (c *Cache) entryFor(path string) *fileEntry {
	c.mu.Lock()
	e, ok := c.files[path]
	if !ok {
		e = &fileEntry{roundRobinIndex: make(map[string]int)}
		e.tags = loadTags(path, c.log)
		c.files[path] = e
		if c.watcher != nil {
			if err := c.watcher.Add(path); err != nil {
				c.log.Warn("idtag: failed to watch file", "path", path, "error", err)
			}
		}
	}
	c.mu.Unlock()
	return e
}

func loadTags(path string, log *slog.Logger) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("idtag: failed to read tags file", "path", path, "error", err)
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		log.Warn("idtag: failed to parse tags file", "path", path, "error", err)
		return nil
	}
	return tags
}

// GetIdTag implements §4.A's getIdTag(distribution, station, connectorId).
// stationHashID and stationIndex identify the calling station for the
// ROUND_ROBIN and CONNECTOR_AFFINITY formulas respectively.
func (c *Cache) GetIdTag(path string, distribution Distribution, stationHashID string, stationIndex, connectorID int) string {
	e := c.entryFor(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.tags) == 0 {
		return ""
	}
	n := len(e.tags)

	switch distribution {
	case RoundRobin:
		prev := e.roundRobinIndex[stationHashID]
		idx := (prev + 1) % n
		e.roundRobinIndex[stationHashID] = idx
		return e.tags[idx]
	case ConnectorAffinity:
		idx := mod((stationIndex-1)+(connectorID-1), n)
		return e.tags[idx]
	default: // Random
		idx := secureIndex(n)
		return e.tags[idx]
	}
}

// Contains reports whether identifier appears verbatim in path's tag list,
// used by the authorization pipeline's LocalList strategy (§4.G).
func (c *Cache) Contains(path, identifier string) bool {
	if path == "" {
		return false
	}
	e := c.entryFor(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tags {
		if t == identifier {
			return true
		}
	}
	return false
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func secureIndex(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	idx, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(idx.Int64())
}
