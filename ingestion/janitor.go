package ingestion

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// janitor reclaims orphaned temporary upload files. The worker removes its
// own temp file on every exit path, but a crashed worker or an aborted
// submission can leave files behind; the janitor sweeps the spool directory
// and removes any upload file older than maxAge.
type janitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newJanitor(dir string, maxAge, interval time.Duration, logger *slog.Logger) *janitor {
	return &janitor{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *janitor) start() {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				j.sweep()
			}
		}
	}()
}

func (j *janitor) release() {
	j.once.Do(func() {
		close(j.stop)
	})
	<-j.done
}

// sweep removes spool files older than maxAge.
func (j *janitor) sweep() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.logger.Warn("janitor cannot read spool directory", "dir", j.dir, "err", err)
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("janitor failed to remove orphaned file", "path", path, "err", err)
			continue
		}
		j.logger.Debug("janitor removed orphaned file", "path", path)
	}
}
