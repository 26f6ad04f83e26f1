package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
)

var activityColumns = []string{"id", "user_id", "action", "entity_type", "entity_id", "details", "created_at"}

type activityRow struct {
	ID         string         `db:"id"`
	UserID     null.String    `db:"user_id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	Details    types.JSONText `db:"details"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r activityRow) log() (activity.Log, error) {
	details := activity.Details{}
	if err := r.Details.Unmarshal(&details); err != nil {
		return activity.Log{}, errors.Wrap(err, "decoding activity details")
	}
	return activity.Log{
		ID:         r.ID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Details:    details,
		CreatedAt:  r.CreatedAt.UTC(),
	}, nil
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateLog(ctx context.Context, l activity.Log) (activity.Log, error) {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return activity.Log{}, errors.Wrap(err, "encoding activity details")
	}
	l.ID = uuid.New().String()
	b := psql.Insert("activity_logs").Columns(activityColumns...).
		Values(l.ID, l.UserID, l.Action, l.EntityType, l.EntityID, types.JSONText(details), l.CreatedAt.UTC())
	if _, err = exec(ctx, repo.db, b); err != nil {
		return activity.Log{}, errors.Wrap(err, "inserting activity log")
	}
	return l, nil
}

func (repo *activityRepository) QueryLogs(ctx context.Context, filter activity.QueryFilter) ([]activity.Log, error) {
	b := psql.Select(activityColumns...).From("activity_logs").OrderBy("created_at DESC")
	if filter.UserID != "" {
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return []activity.Log{}, nil
		}
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Action != "" {
		b = b.Where(sq.Eq{"action": filter.Action})
	}
	if filter.EntityType != "" {
		b = b.Where(sq.Eq{"entity_type": filter.EntityType})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	var rows []activityRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying activity logs")
	}
	logs := make([]activity.Log, 0, len(rows))
	for _, r := range rows {
		l, err := r.log()
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}
