package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/sheet"
)

func TestListScopesTeachersToTheirOwnRows(t *testing.T) {
	h := newHarness(t)

	records, err := h.grades.List(context.Background(), teacherSession(mathTeacher), model.GradeListQuery{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, mathTeacher, r.TeacherEmail)
	}
}

func TestListRejectsOtherTeachersRows(t *testing.T) {
	h := newHarness(t)

	q := model.GradeListQuery{LocateKey: model.LocateKey{Teacher: bioTeacher}}
	_, err := h.grades.List(context.Background(), teacherSession(mathTeacher), q)
	assert.ErrorIs(t, err, ErrOutOfScope)
}

func TestListScopesViewersToTheirStudent(t *testing.T) {
	h := newHarness(t)

	records, err := h.grades.List(context.Background(), viewerSession("Ben Clarke"), model.GradeListQuery{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	q := model.GradeListQuery{LocateKey: model.LocateKey{Student: "Alice Brown"}}
	_, err = h.grades.List(context.Background(), viewerSession("Ben Clarke"), q)
	assert.ErrorIs(t, err, ErrOutOfScope)
}

func TestListFiltersByConductCode(t *testing.T) {
	h := newHarness(t)

	q := model.GradeListQuery{ConductCode: "excellent"}
	records, err := h.grades.List(context.Background(), adminSession(), q)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ben Clarke", records[0].StudentName)
}

func TestOptionsWithinScope(t *testing.T) {
	h := newHarness(t)

	opts, err := h.grades.Options(context.Background(), teacherSession(bioTeacher))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Brown", "Ben Clarke"}, opts.Students)
	assert.Equal(t, []string{"Biology"}, opts.Subjects)
	assert.Equal(t, []string{"Midterm"}, opts.AssessmentTypes)
	assert.Len(t, opts.ConductCodes, 4)
}

func TestReportBandsAndAverage(t *testing.T) {
	h := newHarness(t)

	report, err := h.grades.Report(context.Background(), viewerSession("alice brown"),
		model.StudentReportQuery{AssessmentType: "midterm"})
	require.NoError(t, err)

	assert.Equal(t, "Alice Brown", report.StudentName)
	require.Len(t, report.Lines, 2)
	assert.Equal(t, "Biology", report.Lines[0].Subject)
	assert.Equal(t, model.BandFailing, report.Lines[0].Band)
	assert.Equal(t, "Mathematics", report.Lines[1].Subject)
	assert.Equal(t, model.BandPassing, report.Lines[1].Band)
	require.NotNil(t, report.Average)
	assert.InDelta(t, 66.5, *report.Average, 0.001)
}

func TestReportNeedsStudentForStaff(t *testing.T) {
	h := newHarness(t)

	_, err := h.grades.Report(context.Background(), adminSession(), model.StudentReportQuery{AssessmentType: "Midterm"})
	assert.ErrorIs(t, err, ErrStudentRequired)

	_, err = h.grades.Report(context.Background(), adminSession(),
		model.StudentReportQuery{Student: "Nobody", AssessmentType: "Midterm"})
	assert.ErrorIs(t, err, gradebook.ErrNotFound)
}

func TestLocateAmbiguousForAdmin(t *testing.T) {
	h := newHarness(t)

	_, err := h.grades.Locate(context.Background(), adminSession(),
		model.LocateKey{Student: "Alice Brown", Subject: "Mathematics"})

	var amb *gradebook.AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []int{2, 4}, amb.SheetRows)
}

func TestLocateRejectsViewers(t *testing.T) {
	h := newHarness(t)

	_, err := h.grades.Locate(context.Background(), viewerSession("Alice Brown"), model.LocateKey{})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestUpdateWritesAuditsAndPublishes(t *testing.T) {
	h := newHarness(t)
	sess := teacherSession(mathTeacher)

	res, err := h.grades.Update(context.Background(), sess, model.UpdateGradeRequest{
		Key:     model.LocateKey{Student: "alice brown", Subject: "mathematics", AssessmentType: "MIDTERM"},
		Changes: map[string]interface{}{"Grade": float64(85)},
	})
	require.NoError(t, err)
	assert.Equal(t, gradebook.StateDone, res.State)
	assert.Equal(t, []model.EditableField{model.FieldGrade}, res.Written)

	writes := h.store.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, sheet.WriteLog{Worksheet: gradesWS, Row: 2, Col: 6, Value: "85"}, writes[0])

	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, model.FieldGrade, entry.Field)
	assert.Equal(t, "78", entry.OldValue)
	assert.Equal(t, "85", entry.NewValue)
	assert.Equal(t, model.AuditWritten, entry.Status)
	assert.Equal(t, mathTeacher, entry.ActorEmail)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, "Alice Brown", h.events.events[0].StudentName)
	assert.Equal(t, mathTeacher, h.events.events[0].Teacher)
	assert.Contains(t, h.cache.invalidated, gradesWS)
}

func TestUpdateCannotReachAnotherTeachersRow(t *testing.T) {
	h := newHarness(t)

	_, err := h.grades.Update(context.Background(), teacherSession(bioTeacher), model.UpdateGradeRequest{
		Key:     model.LocateKey{Student: "Alice Brown", Subject: "Mathematics", AssessmentType: "Midterm"},
		Changes: map[string]interface{}{"Grade": 10},
	})
	assert.ErrorIs(t, err, gradebook.ErrNotFound)
	assert.Empty(t, h.store.Writes())
	assert.Empty(t, h.audit.entries)
}

func TestUpdateRejectsViewers(t *testing.T) {
	h := newHarness(t)

	_, err := h.grades.Update(context.Background(), viewerSession("Alice Brown"), model.UpdateGradeRequest{
		Changes: map[string]interface{}{"Grade": 100},
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestUpdatePartialFailureIsAudited(t *testing.T) {
	h := newHarness(t)
	h.store.FailWrite = func(_ string, _, col int) error {
		if col == 7 {
			return errBoom
		}
		return nil
	}

	res, err := h.grades.Update(context.Background(), adminSession(), model.UpdateGradeRequest{
		Key: model.LocateKey{Student: "Ben Clarke", Subject: "Biology"},
		Changes: map[string]interface{}{
			"Grade":       "70",
			"ConductCode": "good",
			"CommentText": "Improving",
		},
	})

	var perr *gradebook.PartialFailureError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, gradebook.StatePartialFailure, res.State)
	assert.Equal(t, []model.EditableField{model.FieldGrade}, perr.Written)
	assert.Equal(t, []model.EditableField{model.FieldConductCode}, perr.Failed)
	assert.Equal(t, []model.EditableField{model.FieldCommentText}, perr.Pending)

	require.Len(t, h.audit.entries, 2)
	assert.Equal(t, model.AuditWritten, h.audit.entries[0].Status)
	assert.Equal(t, model.AuditFailed, h.audit.entries[1].Status)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, []model.EditableField{model.FieldGrade}, h.events.events[0].Fields)
}

func TestUpdateAuditFailureDoesNotFailUpdate(t *testing.T) {
	h := newHarness(t)
	h.audit.err = errBoom

	res, err := h.grades.Update(context.Background(), adminSession(), model.UpdateGradeRequest{
		Key:     model.LocateKey{Student: "Ben Clarke", Subject: "Biology"},
		Changes: map[string]interface{}{"CommentText": "Well done"},
	})
	require.NoError(t, err)
	assert.Equal(t, gradebook.StateDone, res.State)
}

func TestReadsUseCacheButUpdatesReadFresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A stale cached copy where Ben's maths grade is still 50.
	stale := gradeRows()
	stale[4][5] = "50"
	require.NoError(t, h.cache.Put(ctx, gradesWS, stale))

	records, err := h.grades.List(ctx, adminSession(), model.GradeListQuery{
		LocateKey: model.LocateKey{Student: "Ben Clarke", Subject: "Mathematics"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 50.0, *records[0].Grade)

	// The store holds 93, so setting 93 is a no-op diff.
	res, err := h.grades.Update(ctx, adminSession(), model.UpdateGradeRequest{
		Key:     model.LocateKey{Student: "Ben Clarke", Subject: "Mathematics"},
		Changes: map[string]interface{}{"Grade": 93},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Empty(t, h.store.Writes())
}

func TestCacheFillCannotOutliveUpdateInvalidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gated := newGatedStore(h.store)
	grades := h.gradeServiceOn(gated)

	// A cache-miss read starts before the update and is parked inside the store.
	readDone := make(chan error, 1)
	go func() {
		_, err := grades.Snapshot(ctx)
		readDone <- err
	}()
	<-gated.entered

	updateDone := make(chan error, 1)
	go func() {
		_, err := grades.Update(ctx, adminSession(), model.UpdateGradeRequest{
			Key:     model.LocateKey{Student: "Ben Clarke", Subject: "Mathematics"},
			Changes: map[string]interface{}{"Grade": 97},
		})
		updateDone <- err
	}()

	select {
	case <-updateDone:
		t.Fatal("update ran while a cache fill was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	require.NoError(t, <-readDone)
	require.NoError(t, <-updateDone)

	h.cache.mu.Lock()
	_, cached := h.cache.rows[gradesWS]
	h.cache.mu.Unlock()
	assert.False(t, cached, "pre-update rows must not remain cached")

	records, err := grades.List(ctx, adminSession(), model.GradeListQuery{
		LocateKey: model.LocateKey{Student: "Ben Clarke", Subject: "Mathematics"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 97.0, *records[0].Grade)
}

func TestCacheErrorsFallBackToStore(t *testing.T) {
	h := newHarness(t)
	h.cache.getErr = fmt.Errorf("redis down: %w", errBoom)

	records, err := h.grades.List(context.Background(), adminSession(), model.GradeListQuery{})
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestSchemaErrorSurfaces(t *testing.T) {
	h := newHarness(t)
	h.store.Load(gradesWS, [][]string{{"NAME", "Subject"}})

	_, err := h.grades.List(context.Background(), adminSession(), model.GradeListQuery{})
	assert.True(t, errors.Is(err, gradebook.ErrSchema))

	schemas, err := h.grades.Schema(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.False(t, schemas[0].Valid)
	assert.True(t, schemas[1].Valid)
}

func TestRefreshSummarisesBothWorksheets(t *testing.T) {
	h := newHarness(t)

	summary, err := h.grades.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Records)
	assert.Equal(t, 2, summary.Students)
	assert.Equal(t, 3, summary.Teachers)
	assert.ElementsMatch(t, []string{gradesWS, teachersWS}, h.cache.invalidated)
}

func TestEventVisible(t *testing.T) {
	ev := model.GradeChangedEvent{StudentName: "Alice Brown", Teacher: mathTeacher}

	assert.True(t, EventVisible(adminSession(), ev))
	assert.True(t, EventVisible(teacherSession("M.Barrett@chhs.edu.jm"), ev))
	assert.False(t, EventVisible(teacherSession(bioTeacher), ev))
	assert.True(t, EventVisible(viewerSession("alice brown"), ev))
	assert.False(t, EventVisible(viewerSession("Ben Clarke"), ev))
}

func TestCreateAppendsScopedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.grades.Create(ctx, teacherSession(mathTeacher), model.CreateGradeRequest{
		Student:        " Chloe Dunn ",
		Subject:        "Mathematics",
		AssessmentType: "Midterm",
		Term:           "Term 1",
		Values:         map[string]interface{}{"Grade": 72, "CommentText": " New to the class "},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, rec.SheetRow)
	assert.Equal(t, "Chloe Dunn", rec.StudentName)
	assert.Equal(t, mathTeacher, rec.TeacherEmail)
	require.NotNil(t, rec.Grade)
	assert.Equal(t, 72.0, *rec.Grade)

	row, err := h.store.ReadRow(ctx, gradesWS, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chloe Dunn", "Mathematics", "Midterm", "Term 1", mathTeacher, "72", "", "New to the class"}, row)

	require.Len(t, h.audit.entries, 2)
	assert.Equal(t, model.FieldGrade, h.audit.entries[0].Field)
	assert.Equal(t, "", h.audit.entries[0].OldValue)
	assert.Equal(t, "72", h.audit.entries[0].NewValue)
	assert.Equal(t, 7, h.audit.entries[0].SheetRow)

	require.Len(t, h.events.events, 1)
	assert.True(t, h.events.events[0].Created)
	assert.Equal(t, mathTeacher, h.events.events[0].Teacher)
	assert.Contains(t, h.cache.invalidated, gradesWS)

	located, err := h.grades.Locate(ctx, teacherSession(mathTeacher), model.LocateKey{Student: "chloe dunn"})
	require.NoError(t, err)
	assert.Equal(t, 7, located.Record.SheetRow)
}

func TestCreateWithoutValuesStillPublishes(t *testing.T) {
	h := newHarness(t)

	rec, err := h.grades.Create(context.Background(), adminSession(), model.CreateGradeRequest{
		Student:        "Chloe Dunn",
		Subject:        "Biology",
		AssessmentType: "Midterm",
		Term:           "Term 1",
		Teacher:        "S.Gordon@chhs.edu.jm",
	})
	require.NoError(t, err)
	assert.Nil(t, rec.Grade)
	assert.Equal(t, bioTeacher, rec.TeacherEmail)
	assert.Empty(t, h.audit.entries)
	require.Len(t, h.events.events, 1)
	assert.True(t, h.events.events[0].Created)
	assert.Empty(t, h.events.events[0].Fields)
}

func TestCreateRejectsDuplicateKey(t *testing.T) {
	h := newHarness(t)

	for _, sess := range []model.SessionContext{teacherSession(mathTeacher), teacherSession(bioTeacher)} {
		_, err := h.grades.Create(context.Background(), sess, model.CreateGradeRequest{
			Student:        "alice brown",
			Subject:        "MATHEMATICS",
			AssessmentType: "Midterm",
			Term:           "Term 1",
		})
		assert.ErrorIs(t, err, gradebook.ErrDuplicate, sess.Email)
	}
	assert.Empty(t, h.store.Writes())
	assert.Empty(t, h.events.events)
}

func TestCreateScopeAndTeacherChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := model.CreateGradeRequest{
		Student:        "Chloe Dunn",
		Subject:        "Mathematics",
		AssessmentType: "Final Exam",
		Term:           "Term 2",
	}

	_, err := h.grades.Create(ctx, viewerSession("Alice Brown"), req)
	assert.ErrorIs(t, err, ErrReadOnly)

	other := req
	other.Teacher = bioTeacher
	_, err = h.grades.Create(ctx, teacherSession(mathTeacher), other)
	assert.ErrorIs(t, err, ErrOutOfScope)

	_, err = h.grades.Create(ctx, adminSession(), req)
	assert.ErrorIs(t, err, ErrTeacherRequired)

	unknown := req
	unknown.Teacher = "nobody@chhs.edu.jm"
	_, err = h.grades.Create(ctx, adminSession(), unknown)
	assert.ErrorIs(t, err, ErrUnknownTeacher)

	bad := req
	bad.Values = map[string]interface{}{"Grade": 140, "Teacher": "x"}
	_, err = h.grades.Create(ctx, teacherSession(mathTeacher), bad)
	var verr *gradebook.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	assert.Empty(t, h.store.Writes())
}

func TestCreateNeedsAppendingStore(t *testing.T) {
	h := newHarness(t)
	grades := h.gradeServiceOn(storeOnly{h.store})

	_, err := grades.Create(context.Background(), teacherSession(mathTeacher), model.CreateGradeRequest{
		Student:        "Chloe Dunn",
		Subject:        "Mathematics",
		AssessmentType: "Midterm",
		Term:           "Term 1",
	})
	assert.ErrorIs(t, err, ErrCannotAppend)
}
