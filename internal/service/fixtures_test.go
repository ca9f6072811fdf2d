package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/repository"
	"github.com/chhs/grades-backend/internal/sheet"
)

const (
	gradesWS   = "Sheet1"
	teachersWS = "Teachers"

	mathTeacher = "m.barrett@chhs.edu.jm"
	bioTeacher  = "s.gordon@chhs.edu.jm"
	principal   = "principal@chhs.edu.jm"
)

func gradeRows() [][]string {
	return [][]string{
		{"NAME", "Subject", "Assessment Type", "Assessment Period", "Teacher", "Grade", "Conduct Code", "Comments"},
		{"Alice Brown", "Mathematics", "Midterm", "Term 1", mathTeacher, "78", "Good", ""},
		{"Alice Brown", "Biology", "Midterm", "Term 1", bioTeacher, "55", "Average", ""},
		{"Alice Brown", "Mathematics", "Final Exam", "Term 1", mathTeacher, "", "", ""},
		{"Ben Clarke", "Mathematics", "Midterm", "Term 1", mathTeacher, "93", "Excellent", "Top of class"},
		{"Ben Clarke", "Biology", "Midterm", "Term 1", bioTeacher, "64", "", ""},
	}
}

func teacherRows() [][]string {
	return [][]string{
		{"Email", "Name", "Subjects", "Role"},
		{mathTeacher, "Marcia Barrett", "Mathematics", "Subject Teacher"},
		{bioTeacher, "Sandra Gordon", "Biology, Chemistry", "Form Teacher"},
		{principal, "Joan Whyte", "", "Admin"},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        4,
		GradesWorksheet:   gradesWS,
		TeachersWorksheet: teachersWS,
		SnapshotTTL:       time.Minute,
	}
}

// ─── Fakes ───────────────────────────────────────────────────────────────

type fakeCache struct {
	mu          sync.Mutex
	rows        map[string][][]string
	getErr      error
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: make(map[string][][]string)}
}

func (c *fakeCache) Get(_ context.Context, ws string) ([][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	rows, ok := c.rows[ws]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return rows, nil
}

func (c *fakeCache) Put(_ context.Context, ws string, rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[ws] = rows
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, worksheets ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ws := range worksheets {
		delete(c.rows, ws)
		c.invalidated = append(c.invalidated, ws)
	}
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
}

func (a *fakeAudit) InsertMany(_ context.Context, entries []model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entries...)
	return nil
}

func (a *fakeAudit) List(_ context.Context, _ model.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if offset >= len(a.entries) {
		return nil, len(a.entries), nil
	}
	end := offset + limit
	if end > len(a.entries) {
		end = len(a.entries)
	}
	return a.entries[offset:end], len(a.entries), nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.GradeChangedEvent
}

func (e *fakeEvents) Publish(_ context.Context, ev model.GradeChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{sessions: make(map[string]string)}
}

func (r *fakeRegistry) Register(_ context.Context, jti, holder string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[jti] = holder
	return nil
}

func (r *fakeRegistry) Exists(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[jti]; !ok {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *fakeRegistry) Remove(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, jti)
	return nil
}

// storeOnly hides every optional capability of the wrapped store.
type storeOnly struct {
	sheet.Store
}

// gatedStore holds its first ReadRows until release is closed.
type gatedStore struct {
	*sheet.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(m *sheet.Memory) *gatedStore {
	return &gatedStore{Memory: m, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) ReadRows(ctx context.Context, worksheet string) ([][]string, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Memory.ReadRows(ctx, worksheet)
}

// ─── Harness ─────────────────────────────────────────────────────────────

type harness struct {
	cfg      *config.Config
	store    *sheet.Memory
	cache    *fakeCache
	audit    *fakeAudit
	events   *fakeEvents
	registry *fakeRegistry
	grades   *GradeService
	sessions *SessionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg:      testConfig(),
		store:    sheet.NewMemory(),
		cache:    newFakeCache(),
		audit:    &fakeAudit{},
		events:   &fakeEvents{},
		registry: newFakeRegistry(),
	}
	h.store.Load(gradesWS, gradeRows())
	h.store.Load(teachersWS, teacherRows())
	h.grades = NewGradeService(h.cfg, h.store, h.cache, h.audit, h.events, zerolog.Nop())
	h.sessions = NewSessionService(h.cfg, h.registry, h.grades, zerolog.Nop())
	return h
}

// gradeServiceOn builds a GradeService sharing the harness fakes but reading store.
func (h *harness) gradeServiceOn(store sheet.Store) *GradeService {
	return NewGradeService(h.cfg, store, h.cache, h.audit, h.events, zerolog.Nop())
}

func teacherSession(email string) model.SessionContext {
	return model.SessionContext{SessionID: "s-" + email, Role: model.RoleSubjectTeacher, Email: email}
}

func adminSession() model.SessionContext {
	return model.SessionContext{SessionID: "s-admin", Role: model.RoleAdmin, Email: principal}
}

func viewerSession(student string) model.SessionContext {
	return model.SessionContext{SessionID: "s-viewer", Role: model.RoleParent, StudentName: student}
}

var errBoom = errors.New("boom")
