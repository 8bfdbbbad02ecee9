// Package archive mirrors external cover images into object storage so
// that journal entries survive the upstream image host. Archiving runs
// in the background and never influences API responses.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"book-journal/internal/domain"
	"book-journal/internal/repository"
	"book-journal/internal/storage"
)

// Manager coordinates cover image fetch-and-upload work.
type Manager interface {
	Start() error
	Shutdown()
	Enqueue(ctx context.Context, noteID int64) error
	Resume(ctx context.Context) error
	Sweep(ctx context.Context) error
}

type Config struct {
	Bucket        string
	KeyPrefix     string
	MaxConcurrent int
	FetchTimeout  time.Duration
	Logger        *logrus.Logger
}

type manager struct {
	cfg     Config
	notes   repository.NoteRepository
	storage storage.Service
	http    *http.Client

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg Config, notes repository.NoteRepository, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:     cfg,
		notes:   notes,
		storage: store,
		http:    &http.Client{Timeout: cfg.FetchTimeout},
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Start readies the manager for work. The worker context is detached
// from the caller's lifetime: accepted work outlives request contexts
// and shutdown signals, and only Shutdown releases it.
func (m *manager) Start() error {
	if m.cfg.Bucket == "" {
		return fmt.Errorf("archive bucket is required")
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.cfg.Logger.Infof("cover archive started, bucket: %s", m.cfg.Bucket)
	return nil
}

// Shutdown waits for in-flight archive work before releasing the
// manager context. Accepted work is finished, not abandoned.
func (m *manager) Shutdown() {
	m.wg.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.cfg.Logger.Info("cover archive stopped")
}

// Enqueue schedules the note's cover for archiving. Notes without a
// cover URL or already archived are skipped silently.
func (m *manager) Enqueue(ctx context.Context, noteID int64) error {
	if m.ctx == nil {
		return fmt.Errorf("archive manager not started")
	}
	m.spawn(noteID)
	return nil
}

// Resume re-enqueues every note that has a cover URL but no archived
// object, picking up work dropped by a previous shutdown or failure.
func (m *manager) Resume(ctx context.Context) error {
	notes, err := m.notes.ListUnarchived(ctx)
	if err != nil {
		return err
	}
	for i := range notes {
		m.spawn(notes[i].ID)
	}
	return nil
}

// Sweep deletes stored objects that no note references anymore, either
// because the note is gone or because it points at a different object.
// Orphans accumulate when a best-effort delete after note removal fails.
func (m *manager) Sweep(ctx context.Context) error {
	objects, err := m.storage.ListObjects(ctx, m.cfg.Bucket, strings.Trim(m.cfg.KeyPrefix, "/"))
	if err != nil {
		return fmt.Errorf("list archived covers: %w", err)
	}

	for _, obj := range objects {
		noteID, err := strconv.ParseInt(path.Base(obj.Key), 10, 64)
		if err != nil {
			m.cfg.Logger.Warnf("sweep: unrecognized object key %q", obj.Key)
			continue
		}

		note, err := m.notes.Get(ctx, noteID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return fmt.Errorf("sweep note %d: %w", noteID, err)
		case note.CoverObject == obj.Key:
			continue
		}

		if err := m.storage.DeleteObject(ctx, m.cfg.Bucket, obj.Key); err != nil {
			m.cfg.Logger.Warnf("sweep: delete orphan %s: %v", obj.Key, err)
			continue
		}
		m.cfg.Logger.Infof("sweep: deleted orphan cover %s", obj.Key)
	}
	return nil
}

func (m *manager) spawn(noteID int64) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-m.ctx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.archiveNote(m.ctx, noteID)
		}
	}()
}

func (m *manager) archiveNote(ctx context.Context, noteID int64) {
	logger := m.cfg.Logger.WithField("note_id", noteID)

	note, err := m.notes.Get(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("note gone, skipping")
			return
		}
		logger.Errorf("load note: %v", err)
		return
	}
	if note.CoverURL == nil || *note.CoverURL == "" || note.CoverObject != "" {
		logger.Debug("nothing to archive, skipping")
		return
	}

	body, contentType, err := m.fetchCover(ctx, *note.CoverURL)
	if err != nil {
		logger.Warnf("fetch cover: %v", err)
		return
	}
	defer body.Close()

	key := fmt.Sprintf("%d", note.ID)
	if prefix := strings.Trim(m.cfg.KeyPrefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}

	if _, err := m.storage.PutObject(ctx, body, storage.PutOptions{
		Bucket:      m.cfg.Bucket,
		Key:         key,
		ContentType: contentType,
	}); err != nil {
		logger.Warnf("upload cover: %v", err)
		return
	}

	if err := m.notes.SetCoverObject(ctx, note.ID, key); err != nil {
		logger.Errorf("record cover object: %v", err)
		return
	}
	logger.Infof("archived cover to %s", key)
}

func (m *manager) fetchCover(ctx context.Context, coverURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
