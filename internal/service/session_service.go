package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/repository"
)

// Common session errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStudentNotFound    = errors.New("student not found in the grades sheet")
	ErrSessionEnded       = errors.New("session ended or expired")
	ErrInvalidToken       = errors.New("invalid token claims")
)

// Claims extends JWT standard claims with the session context.
type Claims struct {
	jwt.RegisteredClaims
	Role        model.Role         `json:"role"`
	Email       string             `json:"email,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
	Subjects    []string           `json:"subjects,omitempty"`
	StudentName string             `json:"student_name,omitempty"`
	Permissions []model.Permission `json:"permissions,omitempty"`
}

// Session converts the claims into the context handed to handlers.
func (c *Claims) Session() model.SessionContext {
	s := model.SessionContext{
		SessionID:   c.ID,
		Role:        c.Role,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Subjects:    c.Subjects,
		StudentName: c.StudentName,
		Permissions: c.Permissions,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// SessionRegistry tracks live session IDs.
type SessionRegistry interface {
	Register(ctx context.Context, jti, holder string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) error
	Remove(ctx context.Context, jti string) error
}

// Directory resolves who may open a session.
type Directory interface {
	Teacher(ctx context.Context, email string) (model.TeacherRecord, bool, error)
	ResolveStudent(ctx context.Context, name string) (string, bool, error)
}

// SessionService starts, validates and ends dashboard sessions.
type SessionService struct {
	cfg      *config.Config
	registry SessionRegistry
	dir      Directory
	log      zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg *config.Config, registry SessionRegistry, dir Directory, log zerolog.Logger) *SessionService {
	return &SessionService{
		cfg:      cfg,
		registry: registry,
		dir:      dir,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// HashAccessCode hashes an admin access code with the configured bcrypt cost.
func HashAccessCode(code string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	return string(hash), err
}

// StartStaff opens a teacher or admin session for a roster email. Admins must
// also present the access code when ADMIN_ACCESS_CODE_HASH is configured.
func (s *SessionService) StartStaff(ctx context.Context, req model.StaffSessionRequest) (*model.SessionResponse, error) {
	teacher, ok, err := s.dir.Teacher(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("look up teacher: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if teacher.Role == model.RoleAdmin && s.cfg.AdminAccessCodeHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminAccessCodeHash), []byte(req.AccessCode)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	claims := Claims{
		Role:        teacher.Role,
		Email:       teacher.Email,
		DisplayName: teacher.DisplayName,
		Subjects:    teacher.Subjects,
	}
	return s.issue(ctx, claims, teacher.Email)
}

// StartViewer opens a read-only session scoped to one student.
func (s *SessionService) StartViewer(ctx context.Context, req model.ViewerSessionRequest) (*model.SessionResponse, error) {
	name, ok, err := s.dir.ResolveStudent(ctx, req.StudentName)
	if err != nil {
		return nil, fmt.Errorf("resolve student: %w", err)
	}
	if !ok {
		return nil, ErrStudentNotFound
	}

	claims := Claims{
		Role:        req.Relation,
		DisplayName: name,
		StudentName: name,
	}
	return s.issue(ctx, claims, name)
}

func (s *SessionService) issue(ctx context.Context, claims Claims, holder string) (*model.SessionResponse, error) {
	jti := uuid.New().String()
	now := s.now()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Subject:   holder,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
	}
	claims.Permissions = model.PermissionsFor(claims.Role)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	// The registry entry lives exactly as long as the token.
	if err := s.registry.Register(ctx, jti, holder, s.cfg.JWTExpiry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", jti).
		Str("role", string(claims.Role)).
		Str("holder", holder).
		Msg("Session started")

	return &model.SessionResponse{Token: signed, Session: claims.Session()}, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *SessionService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckSession reports ErrSessionEnded when the session ID is no longer registered.
func (s *SessionService) CheckSession(ctx context.Context, jti string) error {
	err := s.registry.Exists(ctx, jti)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrSessionEnded
	}
	return err
}

// End discards the session. Later requests with its token are rejected.
func (s *SessionService) End(ctx context.Context, jti string) error {
	if err := s.registry.Remove(ctx, jti); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	s.log.Info().Str("session_id", jti).Msg("Session ended")
	return nil
}
