package inmemdb

import (
	"context"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = newID()
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string) (announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.announcements[id]; ok {
		return a, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, filter announcement.QueryFilter) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	as := make([]announcement.Announcement, 0)
	for _, a := range repo.db.announcements {
		if filter.OnlyPublished && !a.IsPublished {
			continue
		}
		if filter.Audience != "" && a.Audience != filter.Audience && a.Audience != announcement.AudienceAll {
			continue
		}
		as = append(as, a)
	}
	sortItems(as, nil, nil, func(a, b announcement.Announcement) bool {
		at, bt := a.CreatedAt, b.CreatedAt
		if a.PublishedAt.Valid {
			at = a.PublishedAt.Time
		}
		if b.PublishedAt.Valid {
			bt = b.PublishedAt.Time
		}
		return at.After(bt)
	})
	return as, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[a.ID]; !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}
