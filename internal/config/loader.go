package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"arbor/internal/logging"
)

// NoCacheEnv disables the loader cache entirely when set to a non-empty
// value. Exists for determinism in tests and troubleshooting.
const NoCacheEnv = "ARBOR_NO_CONFIG_CACHE"

// DefaultPollInterval is how often entry watchers stat their file.
// Polling rather than event-based watching keeps invalidation behavior
// identical across platforms and network filesystems.
const DefaultPollInterval = 2 * time.Second

// Loader caches parsed configuration by resolved file path. Each cached
// entry owns a background poller that marks the entry invalid when the
// file's modification time changes. The zero value is not usable; create
// loaders with NewLoader and release them with Shutdown.
type Loader struct {
	poll     time.Duration
	disabled bool

	mu      sync.Mutex
	entries map[string]*cacheEntry
	closed  bool
}

type cacheEntry struct {
	path    string
	file    *File
	modTime time.Time
	valid   bool
	// watching is false when the poller could not be started; the entry
	// then behaves as a cache miss on every Load.
	watching bool
	stop     chan struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithPollInterval overrides the watcher polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loader) { l.poll = d }
}

// WithoutCache forces every Load to read the file, as NoCacheEnv does.
func WithoutCache() Option {
	return func(l *Loader) { l.disabled = true }
}

// NewLoader creates a config loader. The cache is disabled when NoCacheEnv
// is set in the environment.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		poll:    DefaultPollInterval,
		entries: make(map[string]*cacheEntry),
	}
	if os.Getenv(NoCacheEnv) != "" {
		l.disabled = true
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the parsed configuration for path, from cache when a valid
// entry exists. Parse failures are returned as *ParseError and are never
// cached.
func (l *Loader) Load(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}

	if l.disabled {
		return ReadFile(path)
	}

	l.mu.Lock()
	entry, ok := l.entries[path]
	if ok && entry.valid && entry.watching {
		f := entry.file
		l.mu.Unlock()
		return f, nil
	}
	l.mu.Unlock()

	info, statErr := os.Stat(path)
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return f, nil
	}
	if entry == nil {
		entry = &cacheEntry{path: path}
		l.entries[path] = entry
	}
	entry.file = f
	entry.valid = true
	if statErr != nil {
		// Cannot observe the file's mtime; caching would never
		// invalidate, so disable it for this path.
		entry.watching = false
		return f, nil
	}
	entry.modTime = info.ModTime()
	if !entry.watching {
		entry.watching = true
		entry.stop = make(chan struct{})
		go l.watch(entry, entry.stop)
	}
	return f, nil
}

// Invalidate marks the entry for path invalid; the next Load re-parses.
func (l *Loader) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.entries[path]; ok {
		entry.valid = false
	}
}

// Shutdown stops all entry watchers and drops the cache. Safe to call more
// than once; Load after Shutdown degrades to uncached reads.
func (l *Loader) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, entry := range l.entries {
		if entry.watching {
			close(entry.stop)
			entry.watching = false
		}
	}
	l.entries = make(map[string]*cacheEntry)
}

// watch polls the file's modification time and invalidates the entry on
// change. It never touches file contents; re-parsing happens on the next
// Load in the caller's goroutine.
func (l *Loader) watch(entry *cacheEntry, stop chan struct{}) {
	logger := logging.New("config")
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			info, err := os.Stat(entry.path)
			l.mu.Lock()
			if err != nil || info.ModTime() != entry.modTime {
				if entry.valid {
					logger.Debug("config changed, invalidating cache", "path", entry.path)
				}
				entry.valid = false
			}
			l.mu.Unlock()
		}
	}
}
