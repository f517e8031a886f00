package replica

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"examia/internal/localstore"
	"examia/internal/model"
	"examia/internal/repository"
)

// IDPrefix marks question ids minted by the replica.
const IDPrefix = "r-"

// Manager owns the persisted replica record. Every mutation loads the whole
// document, changes it and writes the whole document back.
type Manager struct {
	store    localstore.Store
	baseline *Document
	log      *zap.Logger
	newID    func() string

	mu sync.Mutex
}

var _ repository.QuestionRepository = (*Manager)(nil)

// NewManager keeps its own copy of baseline.
func NewManager(store localstore.Store, baseline *Document, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if baseline == nil {
		baseline = &Document{}
	}
	return &Manager{
		store:    store,
		baseline: baseline.Clone(),
		log:      log.With(zap.String("component", "replica")),
		newID:    func() string { return IDPrefix + uuid.NewString() },
	}
}

// Baseline returns a copy of the seed document.
func (m *Manager) Baseline() *Document {
	return m.baseline.Clone()
}

// EnsureSeeded writes the baseline when no replica is persisted yet and reports whether it did.
func (m *Manager) EnsureSeeded(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.Get(ctx, localstore.KeyReplica)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, localstore.ErrNotFound) {
		return false, fmt.Errorf("read replica: %w", err)
	}
	if _, err := m.seed(ctx); err != nil {
		return false, err
	}
	m.log.Info("replica_seeded", zap.String("status", "success"))
	return true, nil
}

// seed persists a copy of the baseline whose entries all carry fresh ids, so
// ids deleted before a reset never come back.
func (m *Manager) seed(ctx context.Context) (*Document, error) {
	doc := m.baseline.Clone()
	m.assignIDs(doc)
	if err := m.save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// assignIDs gives every entry without an id a new one and reports whether any changed.
func (m *Manager) assignIDs(doc *Document) bool {
	changed := false
	for _, ref := range walk(doc) {
		if ref.entry.ID != "" {
			continue
		}
		entries, _ := ref.buckets.Get(ref.bucket)
		entries[ref.index].ID = m.newID()
		changed = true
	}
	return changed
}

// Load returns the persisted replica, seeding it first if needed.
func (m *Manager) Load(ctx context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (*Document, error) {
	b, err := m.store.Get(ctx, localstore.KeyReplica)
	if errors.Is(err, localstore.ErrNotFound) {
		return m.seed(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read replica: %w", err)
	}
	doc, err := Decode(b)
	if err != nil {
		return nil, err
	}
	// Records written without ids get them once and keep them.
	if m.assignIDs(doc) {
		if err := m.save(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (m *Manager) save(ctx context.Context, doc *Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode replica: %w", err)
	}
	if err := m.store.Put(ctx, localstore.KeyReplica, b); err != nil {
		return fmt.Errorf("write replica: %w", err)
	}
	return nil
}

// Create appends q to its bucket, creating missing levels at the end of their parents.
// The caller is expected to have validated q.
func (m *Manager) Create(ctx context.Context, q *model.Question) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	years := child(&doc.Ordered, q.Subject)
	modes := child(years, strconv.Itoa(q.Year))
	bs := child(modes, string(q.Mode))

	entry := Entry{ID: m.newID(), Question: q.Question, Solution: q.Solution, Image: q.SolutionImage}
	entries, _ := bs.Get(q.Bucket)
	bs.Set(q.Bucket, append(entries, entry))

	if err := m.save(ctx, doc); err != nil {
		return nil, err
	}

	out := *q
	out.ID = entry.ID
	return &out, nil
}

// List walks the document in stored order: subjects, years, modes and buckets
// in the order they were first written, entries in insertion order.
func (m *Manager) List(ctx context.Context, f model.Filter) ([]model.Question, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Question, 0)
	for _, ref := range walk(doc) {
		if ref.yearNum == 0 {
			continue
		}
		if f.Subject != "" && ref.subject != f.Subject {
			continue
		}
		if f.Year != 0 && ref.yearNum != f.Year {
			continue
		}
		if f.Mode != "" && ref.mode != string(f.Mode) {
			continue
		}
		if f.Bucket != "" && ref.bucket != f.Bucket {
			continue
		}
		out = append(out, ref.question())
	}
	return out, nil
}

// Delete removes the entry with the given id. A bucket left empty is removed.
// Unknown ids report sql.ErrNoRows, like the SQL repository.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if !strings.HasPrefix(id, IDPrefix) {
		return sql.ErrNoRows
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return err
	}

	for _, ref := range walk(doc) {
		if ref.entry.ID != id {
			continue
		}
		entries, _ := ref.buckets.Get(ref.bucket)
		remaining := append(entries[:ref.index:ref.index], entries[ref.index+1:]...)
		if len(remaining) == 0 {
			ref.buckets.Delete(ref.bucket)
		} else {
			ref.buckets.Set(ref.bucket, remaining)
		}
		return m.save(ctx, doc)
	}
	return sql.ErrNoRows
}

// Reset discards the replica and reseeds it from the baseline. It cannot be undone.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, localstore.KeyReplica); err != nil {
		return fmt.Errorf("discard replica: %w", err)
	}
	if _, err := m.seed(ctx); err != nil {
		return err
	}
	m.log.Warn("replica_reset", zap.String("status", "success"))
	return nil
}

// Export writes the replica as indented JSON in baseline shape.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	doc, err := m.Load(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export replica: %w", err)
	}
	return nil
}

type entryRef struct {
	subject, year, mode, bucket string
	yearNum                     int
	buckets                     *Buckets
	index                       int
	entry                       Entry
}

func (r entryRef) question() model.Question {
	return model.Question{
		ID:            r.entry.ID,
		Subject:       r.subject,
		Year:          r.yearNum,
		Mode:          model.Mode(r.mode),
		Bucket:        r.bucket,
		Question:      r.entry.Question,
		Solution:      r.entry.Solution,
		SolutionImage: r.entry.Image,
	}
}

// walk flattens doc in stored order. yearNum is 0 for year keys that are not integers.
func walk(doc *Document) []entryRef {
	var refs []entryRef
	for _, subject := range doc.Keys() {
		years, _ := doc.Get(subject)
		if years == nil {
			continue
		}
		for _, year := range years.Keys() {
			yearNum, _ := strconv.Atoi(year)
			modes, _ := years.Get(year)
			if modes == nil {
				continue
			}
			for _, mode := range modes.Keys() {
				bs, _ := modes.Get(mode)
				if bs == nil {
					continue
				}
				for _, bucket := range bs.Keys() {
					entries, _ := bs.Get(bucket)
					for i, e := range entries {
						refs = append(refs, entryRef{
							subject: subject, year: year, mode: mode, bucket: bucket,
							yearNum: yearNum,
							buckets: bs,
							index:   i,
							entry:   e,
						})
					}
				}
			}
		}
	}
	return refs
}
