// Package assets owns the media files uploaded for Magic Codes: it stores new
// uploads under unique names and removes superseded ones in the background.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
)

var removalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "magiccode_asset_removals_total",
		Help: "Media files removed by the cleanup workers, by result.",
	},
	[]string{"result"},
)

// Config for a Manager.
type Config struct {
	// RootDir is the directory on disk holding uploads.
	RootDir string
	// URLPrefix is the first element of stored relative paths, e.g. "uploads".
	URLPrefix   string
	WorkerCount int
	BufferSize  int
}

// Manager stores uploads and schedules their removal.
type Manager struct {
	rootDir   string
	urlPrefix string

	removals chan string
	wg       sync.WaitGroup

	mu      sync.Mutex
	tracked map[string]time.Time
	closed  bool
}

// New creates the upload directory and starts the cleanup workers.
func New(cfg Config) (*Manager, error) {
	if cfg.RootDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = filepath.Base(cfg.RootDir)
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.BufferSize < 0 {
		cfg.BufferSize = 0
	}

	m := &Manager{
		rootDir:   cfg.RootDir,
		urlPrefix: strings.Trim(cfg.URLPrefix, "/"),
		removals:  make(chan string, cfg.BufferSize),
		tracked:   make(map[string]time.Time),
	}
	m.startWorkers(cfg.WorkerCount)
	return m, nil
}

// RootDir returns the directory uploads are written to.
func (m *Manager) RootDir() string { return m.rootDir }

// URLPrefix returns the first path element of stored asset paths.
func (m *Manager) URLPrefix() string { return m.urlPrefix }

// Save writes r to a new file named after a random UUID, keeping the
// extension of originalName, and returns its relative path. The file is adopted.
func (m *Manager) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 16 {
		ext = ""
	}
	name := uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(m.rootDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close asset file: %w", err)
	}

	rel := path.Join(m.urlPrefix, name)
	m.track(rel)
	return rel, nil
}

// Adopt validates a relative asset path produced elsewhere and starts
// tracking it. Paths outside the upload directory are rejected.
func (m *Manager) Adopt(p string) (string, error) {
	rel, err := m.normalize(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(m.diskPath(rel)); err != nil {
		return "", fmt.Errorf("asset %s: %w", rel, err)
	}
	m.track(rel)
	return rel, nil
}

// Tracked reports whether p is a known upload still awaiting a record or removal.
func (m *Manager) Tracked(p string) bool {
	rel, err := m.normalize(p)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tracked[rel]
	return ok
}

// Release stops tracking p once a record references it.
func (m *Manager) Release(p string) {
	rel, err := m.normalize(p)
	if err != nil {
		return
	}
	m.mu.Lock()
	delete(m.tracked, rel)
	m.mu.Unlock()
}

// ScheduleRemoval queues p for deletion. It never blocks on a full queue and
// never reports failure to the caller; failures are logged by the workers.
func (m *Manager) ScheduleRemoval(p string) {
	rel, err := m.normalize(p)
	if err != nil {
		log.Warn().Err(err).Str("path", p).Msg("Refusing to remove asset outside the upload directory")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracked, rel)

	if m.closed {
		m.remove(rel)
		return
	}

	// Sends happen under mu; Close closes the channel under mu.
	select {
	case m.removals <- rel:
		log.Debug().Str("path", rel).Msg("Asset removal queued")
	default:
		log.Warn().Str("path", rel).Msg("Asset removal queue is full, removing in a detached goroutine")
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.remove(rel)
		}()
	}
}

// Close stops accepting queued removals and waits for pending ones to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.removals)
	m.mu.Unlock()

	m.wg.Wait()
}

// Files lists the relative paths of all regular files in the upload
// directory with their modification times.
func (m *Manager) Files() (map[string]time.Time, error) {
	files := make(map[string]time.Time)
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files[path.Join(m.urlPrefix, e.Name())] = info.ModTime()
	}
	return files, nil
}

// startWorkers launches a pool of goroutines draining the removal queue.
func (m *Manager) startWorkers(workerCount int) {
	log.Info().Int("workers", workerCount).Msg("Starting asset cleanup workers")
	for i := 0; i < workerCount; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for rel := range m.removals {
				m.remove(rel)
			}
		}()
	}
}

func (m *Manager) remove(rel string) {
	err := os.Remove(m.diskPath(rel))
	switch {
	case err == nil:
		removalsTotal.WithLabelValues("removed").Inc()
		log.Info().Str("path", rel).Msg("Asset removed")
	case errors.Is(err, fs.ErrNotExist):
		removalsTotal.WithLabelValues("missing").Inc()
		log.Debug().Str("path", rel).Msg("Asset already gone")
	default:
		removalsTotal.WithLabelValues("failed").Inc()
		cleanupErr := &customerrors.AssetCleanupError{Path: rel, Err: err}
		log.Error().Err(cleanupErr).Str("path", rel).Msg("Asset removal failed")
	}
}

func (m *Manager) track(rel string) {
	m.mu.Lock()
	m.tracked[rel] = time.Now()
	m.mu.Unlock()
}

// normalize turns p into "<prefix>/<name>" and rejects anything that would
// leave the upload directory.
func (m *Manager) normalize(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))
	clean = strings.TrimPrefix(clean, "/")
	name := strings.TrimPrefix(clean, m.urlPrefix+"/")
	if name == clean || name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", fmt.Errorf("asset path %q is not inside %s", p, m.urlPrefix)
	}
	return m.urlPrefix + "/" + name, nil
}

func (m *Manager) diskPath(rel string) string {
	return filepath.Join(m.rootDir, strings.TrimPrefix(rel, m.urlPrefix+"/"))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
