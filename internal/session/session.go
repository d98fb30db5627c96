// Package session stores ingestion sessions: a metadata index plus a blob
// namespace holding each session's originals, canonical table, report,
// category map and logs.
package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/finance-health/internal/blob"
	"github.com/dvloznov/finance-health/internal/categorize"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/tablefile"
	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown session or a missing session artifact.
var ErrNotFound = errors.New("session not found")

// ErrInvalidName is returned for original file names without a usable base name.
var ErrInvalidName = errors.New("invalid file name")

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
}

// Index persists session metadata.
type Index interface {
	Put(ctx context.Context, s Session) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context) ([]Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Store combines the index with the blob namespace.
type Store struct {
	index Index
	blobs blob.Store
	now   func() time.Time
}

func NewStore(index Index, blobs blob.Store) *Store {
	return &Store{index: index, blobs: blobs, now: time.Now}
}

// Open builds the Store selected by cfg.
func Open(ctx context.Context, cfg config.Config) (*Store, error) {
	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session.Open: blob store: %w", err)
	}

	var index Index
	switch cfg.Storage.Index {
	case config.IndexBolt:
		index, err = OpenBolt(cfg.Storage.DBPath)
	case config.IndexTables:
		index, err = NewTableIndex(ctx, cfg.Storage.TableURL, cfg.Storage.TableName)
	default:
		err = fmt.Errorf("unknown index %q", cfg.Storage.Index)
	}
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("session.Open: index: %w", err)
	}
	return NewStore(index, blobs), nil
}

// Blobs exposes the underlying blob namespace, shared with the job store.
func (s *Store) Blobs() blob.Store {
	return s.blobs
}

func (s *Store) Close() error {
	return errors.Join(s.index.Close(), s.blobs.Close())
}

// Blob key layout.
const (
	prefix      = "sessions/"
	originals   = "originals/"
	tableKey    = "normalized.arrow"
	reportKey   = "report.json"
	categoryKey = "categories_map.json"
	logs        = "logs/"
)

func key(id string, parts ...string) string {
	return prefix + id + "/" + strings.Join(parts, "")
}

// Create registers a new session with a random id.
func (s *Store) Create(ctx context.Context, title, notes string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Title:     strings.TrimSpace(title),
		Notes:     strings.TrimSpace(notes),
	}
	if err := s.index.Put(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("Store.Create: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("session_id", sess.ID).Msg("created session")
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	return s.index.Get(ctx, id)
}

// List returns all sessions, newest first.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	sessions, err := s.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Store.List: %w", err)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Delete removes a session and every blob in its namespace.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.deleteBlobs(ctx, prefix+id+"/"); err != nil {
		return fmt.Errorf("Store.Delete: %w", err)
	}
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("Store.Delete: %w", err)
	}
	return nil
}

// Reset deletes all sessions and their data.
func (s *Store) Reset(ctx context.Context) error {
	sessions, err := s.index.List(ctx)
	if err != nil {
		return fmt.Errorf("Store.Reset: %w", err)
	}
	for _, sess := range sessions {
		if err := s.index.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("Store.Reset: %w", err)
		}
	}
	// Blobs left behind by sessions missing from the index go too.
	if err := s.deleteBlobs(ctx, prefix); err != nil {
		return fmt.Errorf("Store.Reset: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("sessions", len(sessions)).Msg("reset session store")
	return nil
}

func (s *Store) deleteBlobs(ctx context.Context, p string) error {
	keys, err := s.blobs.List(ctx, p)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.blobs.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// SaveOriginal archives an uploaded file under its base name.
func (s *Store) SaveOriginal(ctx context.Context, id, name string, data []byte) error {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return fmt.Errorf("Store.SaveOriginal: %w %q", ErrInvalidName, name)
	}
	if err := s.blobs.Put(ctx, key(id, originals, base), data); err != nil {
		return fmt.Errorf("Store.SaveOriginal: %w", err)
	}
	return nil
}

// Originals lists the archived file names of a session.
func (s *Store) Originals(ctx context.Context, id string) ([]string, error) {
	p := key(id, originals)
	keys, err := s.blobs.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("Store.Originals: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, p))
	}
	return names, nil
}

func (s *Store) ReadOriginal(ctx context.Context, id, name string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, key(id, originals, path.Base(name)))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Store.ReadOriginal: %w", err)
	}
	return data, nil
}

// ReadTable returns the session's canonical rows. A session that was never
// ingested has an empty table.
func (s *Store) ReadTable(ctx context.Context, id string) ([]domain.Transaction, error) {
	data, err := s.blobs.Get(ctx, key(id, tableKey))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Store.ReadTable: %w", err)
	}
	txs, err := tablefile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("Store.ReadTable: %w", err)
	}
	return txs, nil
}

func (s *Store) WriteTable(ctx context.Context, id string, txs []domain.Transaction) error {
	data, err := tablefile.Encode(txs)
	if err != nil {
		return fmt.Errorf("Store.WriteTable: %w", err)
	}
	if err := s.blobs.Put(ctx, key(id, tableKey), data); err != nil {
		return fmt.Errorf("Store.WriteTable: %w", err)
	}
	return nil
}

// ReadReport returns ErrNotFound when no report was built yet.
func (s *Store) ReadReport(ctx context.Context, id string) (*report.Report, error) {
	data, err := s.blobs.Get(ctx, key(id, reportKey))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Store.ReadReport: %w", err)
	}
	return report.Unmarshal(data)
}

func (s *Store) WriteReport(ctx context.Context, id string, r *report.Report) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("Store.WriteReport: %w", err)
	}
	if err := s.blobs.Put(ctx, key(id, reportKey), data); err != nil {
		return fmt.Errorf("Store.WriteReport: %w", err)
	}
	return nil
}

// CategoryMap loads the session's merchant category cache. Saving the map
// writes it back to the session.
func (s *Store) CategoryMap(ctx context.Context, id string) (*categorize.CategoryMap, error) {
	k := key(id, categoryKey)
	data, err := s.blobs.Get(ctx, k)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("Store.CategoryMap: %w", err)
	}
	save := func(ctx context.Context, data []byte) error {
		return s.blobs.Put(ctx, k, data)
	}
	return categorize.NewCategoryMap(data, save), nil
}

// WriteLog stores a log file in the session's logs folder.
func (s *Store) WriteLog(ctx context.Context, id, name string, data []byte) error {
	if err := s.blobs.Put(ctx, key(id, logs, path.Base(name)), data); err != nil {
		return fmt.Errorf("Store.WriteLog: %w", err)
	}
	return nil
}

// Logs lists the log file names of a session.
func (s *Store) Logs(ctx context.Context, id string) ([]string, error) {
	p := key(id, logs)
	keys, err := s.blobs.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("Store.Logs: %w", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p)
	}
	return keys, nil
}
