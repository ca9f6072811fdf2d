package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/service"
)

type stubSessions struct {
	mu     sync.Mutex
	err    error
	checks []string
}

func (s *stubSessions) CheckSession(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, jti)
	return s.err
}

func gradeEventPayload(t *testing.T, teacher, student string) string {
	t.Helper()
	b, err := json.Marshal(model.GradeChangedEvent{
		Worksheet:   "Sheet1",
		SheetRow:    2,
		StudentName: student,
		Subject:     "Mathematics",
		Teacher:     teacher,
		Fields:      []model.EditableField{model.FieldGrade},
	})
	require.NoError(t, err)
	return string(b)
}

func TestRouteSendsVisibleEventWhileSessionLive(t *testing.T) {
	sessions := &stubSessions{}
	h := NewWSHandler(service.NewGradeEvents(nil), sessions, zerolog.Nop(), nil)
	sess := model.SessionContext{SessionID: "jti-1", Role: model.RoleSubjectTeacher, Email: "m.barrett@chhs.edu.jm"}

	ev, action := h.route(context.Background(), sess, gradeEventPayload(t, "M.Barrett@chhs.edu.jm", "Alice Brown"))
	assert.Equal(t, streamSend, action)
	assert.Equal(t, 2, ev.SheetRow)
	assert.Equal(t, []string{"jti-1"}, sessions.checks)
}

func TestRouteEndsStreamOnceSessionEnded(t *testing.T) {
	sessions := &stubSessions{err: service.ErrSessionEnded}
	h := NewWSHandler(service.NewGradeEvents(nil), sessions, zerolog.Nop(), nil)
	sess := model.SessionContext{SessionID: "jti-2", Role: model.RoleParent, StudentName: "Alice Brown"}

	_, action := h.route(context.Background(), sess, gradeEventPayload(t, "m.barrett@chhs.edu.jm", "Alice Brown"))
	assert.Equal(t, streamEnd, action)
}

func TestRouteEndsStreamOnRegistryFailure(t *testing.T) {
	sessions := &stubSessions{err: errors.New("redis down")}
	h := NewWSHandler(service.NewGradeEvents(nil), sessions, zerolog.Nop(), nil)
	sess := model.SessionContext{SessionID: "jti-3", Role: model.RoleAdmin, Email: "principal@chhs.edu.jm"}

	_, action := h.route(context.Background(), sess, gradeEventPayload(t, "m.barrett@chhs.edu.jm", "Alice Brown"))
	assert.Equal(t, streamEnd, action)
}

func TestRouteSkipsWithoutRegistryLookup(t *testing.T) {
	sessions := &stubSessions{err: service.ErrSessionEnded}
	h := NewWSHandler(service.NewGradeEvents(nil), sessions, zerolog.Nop(), nil)
	sess := model.SessionContext{SessionID: "jti-4", Role: model.RoleParent, StudentName: "Ben Clarke"}

	_, action := h.route(context.Background(), sess, gradeEventPayload(t, "m.barrett@chhs.edu.jm", "Alice Brown"))
	assert.Equal(t, streamSkip, action)

	_, action = h.route(context.Background(), sess, "{not json")
	assert.Equal(t, streamSkip, action)
	assert.Empty(t, sessions.checks)
}
