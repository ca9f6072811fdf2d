package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chhs/grades-backend/internal/model"
)

// AuditRepository persists the grade change audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

var auditColumns = []string{
	"cycle_id", "worksheet", "sheet_row", "student_name", "subject", "assessment_type",
	"term", "field", "old_value", "new_value", "status", "actor_email",
}

// InsertMany appends the entries of one update cycle.
func (r *AuditRepository) InsertMany(ctx context.Context, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"grade_audit"},
		auditColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]interface{}, error) {
			e := entries[i]
			return []interface{}{
				e.CycleID, e.Worksheet, e.SheetRow, e.StudentName, e.Subject, e.AssessmentType,
				e.Term, string(e.Field), e.OldValue, e.NewValue, string(e.Status), e.ActorEmail,
			}, nil
		}),
	)
	return err
}

// List returns audit rows newest first, plus the total matching count.
func (r *AuditRepository) List(ctx context.Context, filter model.AuditFilter, limit, offset int) ([]model.AuditEntry, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Student != "" {
		args = append(args, filter.Student)
		where = append(where, `LOWER(student_name) = LOWER($`+strconv.Itoa(len(args))+`)`)
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		where = append(where, `LOWER(actor_email) = LOWER($`+strconv.Itoa(len(args))+`)`)
	}
	clause := ""
	if len(where) > 0 {
		clause = ` WHERE ` + strings.Join(where, ` AND `)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM grade_audit`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, cycle_id, worksheet, sheet_row, student_name, subject, assessment_type,
	                 term, field, old_value, new_value, status, actor_email, created_at
	          FROM grade_audit` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.CycleID, &e.Worksheet, &e.SheetRow, &e.StudentName, &e.Subject,
			&e.AssessmentType, &e.Term, &e.Field, &e.OldValue, &e.NewValue, &e.Status,
			&e.ActorEmail, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
