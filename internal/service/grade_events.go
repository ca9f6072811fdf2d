package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/gradebook"
	"github.com/chhs/grades-backend/internal/model"
)

// GradeEvents publishes grade change events on a Redis channel so every
// server instance can push them to its connected dashboards.
type GradeEvents struct {
	rdb *redis.Client
}

// NewGradeEvents creates a new GradeEvents.
func NewGradeEvents(rdb *redis.Client) *GradeEvents {
	return &GradeEvents{rdb: rdb}
}

// Publish sends event to every subscriber.
func (e *GradeEvents) Publish(ctx context.Context, event model.GradeChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return e.rdb.Publish(ctx, config.CacheKey.GradeChangesChannel(), payload).Err()
}

// Subscribe opens a subscription to grade change events. The caller closes it.
func (e *GradeEvents) Subscribe(ctx context.Context) *redis.PubSub {
	return e.rdb.Subscribe(ctx, config.CacheKey.GradeChangesChannel())
}

// DecodeEvent parses a published payload.
func DecodeEvent(payload string) (model.GradeChangedEvent, error) {
	var ev model.GradeChangedEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}

// EventVisible reports whether sess may see ev, using the same scoping as reads.
func EventVisible(sess model.SessionContext, ev model.GradeChangedEvent) bool {
	switch {
	case sess.Role == model.RoleAdmin:
		return true
	case sess.Role.IsTeacher():
		return gradebook.EqualText(ev.Teacher, sess.Email)
	case sess.Role == model.RoleStudent || sess.Role == model.RoleParent:
		return gradebook.EqualText(ev.StudentName, sess.StudentName)
	default:
		return false
	}
}
