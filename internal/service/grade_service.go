package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/logger"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/repository"
	"github.com/chhs/grades-backend/internal/sheet"
)

// Grade access errors.
var (
	ErrOutOfScope      = errors.New("record is outside the caller's scope")
	ErrReadOnly        = errors.New("session cannot edit grades")
	ErrStudentRequired = errors.New("student is required")
	ErrTeacherRequired = errors.New("teacher is required")
	ErrUnknownTeacher  = errors.New("teacher is not on the roster")
	ErrCannotAppend    = errors.New("sheet store cannot add rows")
)

// SnapshotCache holds raw worksheet rows between requests.
type SnapshotCache interface {
	Get(ctx context.Context, worksheet string) ([][]string, error)
	Put(ctx context.Context, worksheet string, rows [][]string) error
	Invalidate(ctx context.Context, worksheets ...string) error
}

// AuditStore persists update cycle audit rows.
type AuditStore interface {
	InsertMany(ctx context.Context, entries []model.AuditEntry) error
	List(ctx context.Context, filter model.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error)
}

// EventPublisher fans grade changes out to live dashboards.
type EventPublisher interface {
	Publish(ctx context.Context, event model.GradeChangedEvent) error
}

// WorksheetSchema reports how a worksheet header maps onto the expected columns.
type WorksheetSchema struct {
	Worksheet string                 `json:"worksheet"`
	Valid     bool                   `json:"valid"`
	Columns   []gradebook.ColumnInfo `json:"columns"`
}

// GradeService orchestrates snapshot loading, role scoping and update cycles
// against the grades worksheet.
type GradeService struct {
	store      sheet.Store
	updater    *gradebook.Updater
	cache      SnapshotCache
	audit      AuditStore
	events     EventPublisher
	gradesWS   string
	teachersWS string
	log        zerolog.Logger

	// mu serialises update cycles so one runs to completion before the next
	// starts. Cache fills on a miss hold it for reading, so a fill that read
	// the store before a write can never land after that write's invalidation.
	mu sync.RWMutex
}

// NewGradeService creates a new GradeService.
func NewGradeService(
	cfg *config.Config,
	store sheet.Store,
	cache SnapshotCache,
	audit AuditStore,
	events EventPublisher,
	log zerolog.Logger,
) *GradeService {
	opts := gradebook.UpdaterOptions{
		Batch:             cfg.BatchWrites,
		VerifyBeforeWrite: cfg.VerifyBeforeWrite,
	}
	return &GradeService{
		store:      store,
		updater:    gradebook.NewUpdater(store, opts, log),
		cache:      cache,
		audit:      audit,
		events:     events,
		gradesWS:   cfg.GradesWorksheet,
		teachersWS: cfg.TeachersWorksheet,
		log:        log.With().Str("component", "grade_service").Logger(),
	}
}

// ─── Snapshot loading ──────────────────────────────────────────────────────

// readRows returns a worksheet's rows, from the cache unless fresh is set.
// Cache failures fall back to the store. Callers passing fresh must hold mu.
func (s *GradeService) readRows(ctx context.Context, worksheet string, fresh bool) ([][]string, error) {
	if !fresh {
		rows, err := s.cache.Get(ctx, worksheet)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("worksheet", worksheet).Msg("Snapshot cache read failed, reading sheet")
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	rows, err := s.store.ReadRows(ctx, worksheet)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", worksheet, err)
	}
	if err := s.cache.Put(ctx, worksheet, rows); err != nil {
		s.log.Warn().Err(err).Str("worksheet", worksheet).Msg("Snapshot cache write failed")
	}
	return rows, nil
}

func (s *GradeService) snapshot(ctx context.Context, fresh bool) (*gradebook.Snapshot, error) {
	rows, err := s.readRows(ctx, s.gradesWS, fresh)
	if err != nil {
		return nil, err
	}
	snap, err := gradebook.LoadGrades(s.gradesWS, rows)
	if err != nil {
		s.log.Error().Err(err).Msg("Grades worksheet failed schema check")
		return nil, err
	}
	return snap, nil
}

// Snapshot returns the grades worksheet, possibly from cache.
func (s *GradeService) Snapshot(ctx context.Context) (*gradebook.Snapshot, error) {
	return s.snapshot(ctx, false)
}

// Roster returns the teacher roster, possibly from cache.
func (s *GradeService) Roster(ctx context.Context) (*gradebook.Roster, error) {
	rows, err := s.readRows(ctx, s.teachersWS, false)
	if err != nil {
		return nil, err
	}
	roster, err := gradebook.LoadTeachers(s.teachersWS, rows)
	if err != nil {
		s.log.Error().Err(err).Msg("Teacher roster failed schema check")
		return nil, err
	}
	return roster, nil
}

// Teacher looks up a roster entry by email.
func (s *GradeService) Teacher(ctx context.Context, email string) (model.TeacherRecord, bool, error) {
	roster, err := s.Roster(ctx)
	if err != nil {
		return model.TeacherRecord{}, false, err
	}
	t, ok := roster.Lookup(email)
	return t, ok, nil
}

// ResolveStudent returns the student's name as spelled in the sheet.
func (s *GradeService) ResolveStudent(ctx context.Context, name string) (string, bool, error) {
	if strings.TrimSpace(name) == "" {
		return "", false, nil
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	matches := gradebook.Filter(snap.Records, model.LocateKey{Student: name})
	if len(matches) == 0 {
		return "", false, nil
	}
	return snap.Records[matches[0]].StudentName, true, nil
}

// ─── Scoping ───────────────────────────────────────────────────────────────

// scope narrows key to what the session may see. Teachers are pinned to their
// own Teacher column and viewers to their student. Asking for someone else's
// rows is ErrOutOfScope.
func scope(sess model.SessionContext, key model.LocateKey) (model.LocateKey, error) {
	switch {
	case sess.Role == model.RoleAdmin:
		return key, nil
	case sess.Role.IsTeacher():
		if key.Teacher != "" && !gradebook.EqualText(key.Teacher, sess.Email) {
			return key, ErrOutOfScope
		}
		key.Teacher = sess.Email
		return key, nil
	case sess.Role == model.RoleStudent || sess.Role == model.RoleParent:
		if key.Student != "" && !gradebook.EqualText(key.Student, sess.StudentName) {
			return key, ErrOutOfScope
		}
		key.Student = sess.StudentName
		return key, nil
	default:
		return key, ErrOutOfScope
	}
}

// ─── Reads ─────────────────────────────────────────────────────────────────

// List returns every record matching q within the session's scope.
func (s *GradeService) List(ctx context.Context, sess model.SessionContext, q model.GradeListQuery) ([]model.GradeRecord, error) {
	key, err := scope(sess, q.LocateKey)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	conduct, _ := model.ParseConductCode(q.ConductCode)
	records := []model.GradeRecord{}
	for _, i := range gradebook.Filter(snap.Records, key) {
		if conduct != "" && snap.Records[i].ConductCode != conduct {
			continue
		}
		records = append(records, snap.Records[i])
	}
	return records, nil
}

// Options lists the distinct selector values within the session's scope.
func (s *GradeService) Options(ctx context.Context, sess model.SessionContext) (*model.GradeOptions, error) {
	key, err := scope(sess, model.LocateKey{})
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	idx := gradebook.Filter(snap.Records, key)
	codes := make([]string, len(model.ConductCodes))
	for i, c := range model.ConductCodes {
		codes[i] = string(c)
	}
	return &model.GradeOptions{
		Students:        gradebook.Distinct(snap.Records, idx, gradebook.ColStudent),
		Subjects:        gradebook.Distinct(snap.Records, idx, gradebook.ColSubject),
		Terms:           gradebook.Distinct(snap.Records, idx, gradebook.ColTerm),
		AssessmentTypes: gradebook.Distinct(snap.Records, idx, gradebook.ColAssessmentType),
		ConductCodes:    codes,
	}, nil
}

// Report builds the per-subject grade report of one student for one
// assessment type, with colour bands and the average of graded subjects.
func (s *GradeService) Report(ctx context.Context, sess model.SessionContext, q model.StudentReportQuery) (*model.StudentReport, error) {
	key, err := scope(sess, model.LocateKey{Student: q.Student, AssessmentType: q.AssessmentType})
	if err != nil {
		return nil, err
	}
	if key.Student == "" {
		return nil, ErrStudentRequired
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	idx := gradebook.Filter(snap.Records, key)
	if len(idx) == 0 {
		return nil, gradebook.ErrNotFound
	}

	report := &model.StudentReport{
		StudentName:    snap.Records[idx[0]].StudentName,
		AssessmentType: snap.Records[idx[0]].AssessmentType,
		Lines:          make([]model.ReportLine, 0, len(idx)),
	}
	var sum float64
	var graded int
	for _, i := range idx {
		rec := snap.Records[i]
		report.Lines = append(report.Lines, model.ReportLine{
			Subject: rec.Subject,
			Term:    rec.Term,
			Grade:   rec.Grade,
			Band:    model.BandFor(rec.Grade),
		})
		if rec.Grade != nil {
			sum += *rec.Grade
			graded++
		}
	}
	sort.SliceStable(report.Lines, func(a, b int) bool {
		if report.Lines[a].Subject != report.Lines[b].Subject {
			return report.Lines[a].Subject < report.Lines[b].Subject
		}
		return report.Lines[a].Term < report.Lines[b].Term
	})
	if graded > 0 {
		avg := math.Round(sum/float64(graded)*10) / 10
		report.Average = &avg
	}
	return report, nil
}

// Locate runs the record locator within the session's scope.
func (s *GradeService) Locate(ctx context.Context, sess model.SessionContext, key model.LocateKey) (*model.LocateResponse, error) {
	if !sess.Role.IsStaff() {
		return nil, ErrReadOnly
	}
	key, err := scope(sess, key)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	index, err := gradebook.Locate(snap.Records, key)
	if err != nil {
		return nil, err
	}
	return &model.LocateResponse{Index: index, Record: snap.Records[index]}, nil
}

// ─── Updates ───────────────────────────────────────────────────────────────

// Update locates the record for req.Key and writes the changed editable
// fields. The snapshot is re-read from the store, never from cache. Every
// attempted write is audited and a change event is published when at least
// one field reached the store.
func (s *GradeService) Update(ctx context.Context, sess model.SessionContext, req model.UpdateGradeRequest) (*gradebook.UpdateResult, error) {
	if !sess.Role.IsStaff() {
		return nil, ErrReadOnly
	}
	key, err := scope(sess, req.Key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}

	res, err := s.updater.Apply(ctx, snap, key, gradebook.Changes(req.Changes))
	if res != nil && len(res.Written)+len(res.Failed) > 0 {
		s.afterWrite(ctx, sess, snap.Worksheet, snap.Records[res.Index], res, false)
	}
	return res, err
}

// Create appends a new grade record. Teachers enter rows under their own
// email; admins name a rostered teacher. A record already present for the
// same student, subject, assessment type and term is gradebook.ErrDuplicate,
// so the locator keeps resolving that key to one row.
func (s *GradeService) Create(ctx context.Context, sess model.SessionContext, req model.CreateGradeRequest) (*model.GradeRecord, error) {
	if !sess.Role.IsStaff() {
		return nil, ErrReadOnly
	}
	key, err := scope(sess, model.LocateKey{
		Student:        strings.TrimSpace(req.Student),
		Subject:        strings.TrimSpace(req.Subject),
		AssessmentType: strings.TrimSpace(req.AssessmentType),
		Term:           strings.TrimSpace(req.Term),
		Teacher:        strings.TrimSpace(req.Teacher),
	})
	if err != nil {
		return nil, err
	}
	if key.Teacher == "" {
		return nil, ErrTeacherRequired
	}
	appender, ok := s.store.(sheet.Appender)
	if !ok {
		return nil, ErrCannotAppend
	}
	values, err := gradebook.Validate(gradebook.Changes(req.Values))
	if err != nil {
		return nil, err
	}

	teacher, found, err := s.Teacher(ctx, key.Teacher)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownTeacher
	}

	rec := model.GradeRecord{
		StudentName:    key.Student,
		Subject:        key.Subject,
		AssessmentType: key.AssessmentType,
		Term:           key.Term,
		TeacherEmail:   teacher.Email,
		DateSubmitted:  time.Now().UTC().Format(time.DateOnly),
	}
	changes := gradebook.Diff(model.GradeRecord{}, values)
	for _, ch := range changes {
		switch v := values[ch.Field].(type) {
		case int:
			g := float64(v)
			rec.Grade = &g
		case model.ConductCode:
			rec.ConductCode = v
		case string:
			rec.CommentText = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	identity := key
	identity.Teacher = ""
	if len(gradebook.Filter(snap.Records, identity)) > 0 {
		return nil, gradebook.ErrDuplicate
	}

	row, err := appender.AppendRow(ctx, snap.Worksheet, snap.Row(rec))
	if err != nil {
		return nil, &gradebook.WriteError{Err: err}
	}
	rec.SheetRow = row

	res := &gradebook.UpdateResult{
		State:    gradebook.StateDone,
		Index:    snap.Len(),
		SheetRow: row,
		Changes:  changes,
	}
	for _, ch := range changes {
		res.Written = append(res.Written, ch.Field)
	}
	s.afterWrite(ctx, sess, snap.Worksheet, rec, res, true)

	log := logger.FromContext(ctx, s.log)
	log.Info().
		Int("sheet_row", row).
		Str("actor", sess.Email).
		Msg("Grade record created")
	return &rec, nil
}

// afterWrite audits a cycle, drops the cached worksheet and publishes the
// change. created marks a cycle that added rec as a new row.
func (s *GradeService) afterWrite(ctx context.Context, sess model.SessionContext, worksheet string, rec model.GradeRecord, res *gradebook.UpdateResult, created bool) {
	cycleID := uuid.New()
	log := logger.FromContext(ctx, s.log).With().
		Str("cycle_id", cycleID.String()).
		Int("sheet_row", res.SheetRow).
		Logger()

	if err := s.cache.Invalidate(ctx, s.gradesWS); err != nil {
		log.Warn().Err(err).Msg("Snapshot cache invalidation failed")
	}

	status := make(map[model.EditableField]model.AuditStatus, len(res.Changes))
	for _, f := range res.Written {
		status[f] = model.AuditWritten
	}
	for _, f := range res.Failed {
		status[f] = model.AuditFailed
	}

	var entries []model.AuditEntry
	for _, ch := range res.Changes {
		st, ok := status[ch.Field]
		if !ok {
			continue
		}
		entries = append(entries, model.AuditEntry{
			CycleID:        cycleID,
			Worksheet:      worksheet,
			SheetRow:       res.SheetRow,
			StudentName:    rec.StudentName,
			Subject:        rec.Subject,
			AssessmentType: rec.AssessmentType,
			Term:           rec.Term,
			Field:          ch.Field,
			OldValue:       ch.Old,
			NewValue:       ch.New,
			Status:         st,
			ActorEmail:     sess.Email,
		})
	}
	if len(entries) > 0 {
		if err := s.audit.InsertMany(ctx, entries); err != nil {
			log.Error().Err(err).Int("entries", len(entries)).Msg("Audit insert failed")
		}
	}

	if len(res.Written) == 0 && !created {
		return
	}
	event := model.GradeChangedEvent{
		CycleID:     cycleID,
		Worksheet:   worksheet,
		SheetRow:    res.SheetRow,
		StudentName: rec.StudentName,
		Subject:     rec.Subject,
		Teacher:     rec.TeacherEmail,
		Fields:      res.Written,
		ActorEmail:  sess.Email,
		Created:     created,
		At:          time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Grade change event publish failed")
	}
}

// ─── Administration ────────────────────────────────────────────────────────

// Refresh drops the cached worksheets and reloads both from the store.
func (s *GradeService) Refresh(ctx context.Context) (*model.SheetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Invalidate(ctx, s.gradesWS, s.teachersWS); err != nil {
		s.log.Warn().Err(err).Msg("Snapshot cache invalidation failed")
	}

	snap, err := s.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	rows, err := s.readRows(ctx, s.teachersWS, true)
	if err != nil {
		return nil, err
	}
	roster, err := gradebook.LoadTeachers(s.teachersWS, rows)
	if err != nil {
		return nil, err
	}

	all := make([]int, snap.Len())
	for i := range all {
		all[i] = i
	}
	summary := &model.SheetSummary{
		Worksheet: snap.Worksheet,
		Records:   snap.Len(),
		Students:  len(gradebook.Distinct(snap.Records, all, gradebook.ColStudent)),
		Teachers:  len(roster.Teachers),
		LoadedAt:  snap.LoadedAt,
	}
	s.log.Info().
		Int("records", summary.Records).
		Int("students", summary.Students).
		Int("teachers", summary.Teachers).
		Msg("Snapshot refreshed")
	return summary, nil
}

// Schema reports the column mapping of both worksheets, including missing columns.
func (s *GradeService) Schema(ctx context.Context) ([]WorksheetSchema, error) {
	out := make([]WorksheetSchema, 0, 2)
	for _, ws := range []struct {
		name   string
		schema gradebook.Schema
	}{
		{s.gradesWS, gradebook.GradeSchema},
		{s.teachersWS, gradebook.TeacherSchema},
	} {
		rows, err := s.readRows(ctx, ws.name, false)
		if err != nil {
			return nil, err
		}
		var header []string
		if len(rows) > 0 {
			header = rows[0]
		}
		_, resolveErr := ws.schema.Resolve(ws.name, header)
		out = append(out, WorksheetSchema{
			Worksheet: ws.name,
			Valid:     resolveErr == nil,
			Columns:   ws.schema.Describe(header),
		})
	}
	return out, nil
}
