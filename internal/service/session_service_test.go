package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chhs/grades-backend/internal/model"
)

func TestStartStaffIssuesRegisteredToken(t *testing.T) {
	h := newHarness(t)

	res, err := h.sessions.StartStaff(context.Background(), model.StaffSessionRequest{Email: "M.Barrett@CHHS.edu.jm"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSubjectTeacher, res.Session.Role)
	assert.Equal(t, mathTeacher, res.Session.Email)
	assert.Equal(t, []string{"Mathematics"}, res.Session.Subjects)
	assert.ElementsMatch(t, []model.Permission{model.PermissionGradesRead, model.PermissionGradesWrite}, res.Session.Permissions)

	claims, err := h.sessions.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.SessionID, claims.ID)
	assert.NoError(t, h.sessions.CheckSession(context.Background(), claims.ID))
}

func TestStartStaffUnknownEmail(t *testing.T) {
	h := newHarness(t)

	_, err := h.sessions.StartStaff(context.Background(), model.StaffSessionRequest{Email: "stranger@example.com"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStartStaffAdminNeedsAccessCode(t *testing.T) {
	h := newHarness(t)
	hash, err := HashAccessCode("correct horse", h.cfg.BcryptCost)
	require.NoError(t, err)
	h.cfg.AdminAccessCodeHash = hash

	_, err = h.sessions.StartStaff(context.Background(), model.StaffSessionRequest{Email: principal, AccessCode: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := h.sessions.StartStaff(context.Background(), model.StaffSessionRequest{Email: principal, AccessCode: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, res.Session.Role)
	assert.Contains(t, res.Session.Permissions, model.PermissionAuditRead)
}

func TestStartViewerResolvesSheetSpelling(t *testing.T) {
	h := newHarness(t)

	res, err := h.sessions.StartViewer(context.Background(), model.ViewerSessionRequest{
		StudentName: "  alice BROWN ",
		Relation:    model.RoleParent,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Brown", res.Session.StudentName)
	assert.Equal(t, []model.Permission{model.PermissionGradesRead}, res.Session.Permissions)

	_, err = h.sessions.StartViewer(context.Background(), model.ViewerSessionRequest{
		StudentName: "Nobody Here",
		Relation:    model.RoleStudent,
	})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestEndSessionInvalidatesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.sessions.StartStaff(ctx, model.StaffSessionRequest{Email: bioTeacher})
	require.NoError(t, err)

	require.NoError(t, h.sessions.End(ctx, res.Session.SessionID))
	assert.ErrorIs(t, h.sessions.CheckSession(ctx, res.Session.SessionID), ErrSessionEnded)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	h := newHarness(t)

	res, err := h.sessions.StartStaff(context.Background(), model.StaffSessionRequest{Email: bioTeacher})
	require.NoError(t, err)

	other := testConfig()
	other.JWTSecret = "another-secret"
	foreign := NewSessionService(other, newFakeRegistry(), h.grades, h.sessions.log)
	_, err = foreign.ValidateToken(res.Token)
	assert.Error(t, err)
}
