package inmemdb

import (
	"context"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateLog(_ context.Context, l activity.Log) (activity.Log, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l.ID = newID()
	repo.db.logs = append(repo.db.logs, l)
	return l, nil
}

// QueryLogs returns the newest logs first.
func (repo *activityRepository) QueryLogs(_ context.Context, filter activity.QueryFilter) ([]activity.Log, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	logs := make([]activity.Log, 0)
	for i := len(repo.db.logs) - 1; i >= 0; i-- {
		l := repo.db.logs[i]
		if filter.UserID != "" && l.UserID.String != filter.UserID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && l.EntityType != filter.EntityType {
			continue
		}
		logs = append(logs, l)
		if filter.Limit > 0 && len(logs) == filter.Limit {
			break
		}
	}
	return logs, nil
}
