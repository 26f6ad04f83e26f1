package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
)

var announcementColumns = []string{
	"id", "title", "body", "audience", "is_published", "published_at", "created_by", "created_at", "updated_at",
}

type announcementRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Body        string      `db:"body"`
	Audience    string      `db:"audience"`
	IsPublished bool        `db:"is_published"`
	PublishedAt null.Time   `db:"published_at"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func newAnnouncementRow(a announcement.Announcement) announcementRow {
	return announcementRow{
		ID:          a.ID,
		Title:       a.Title,
		Body:        a.Body,
		Audience:    a.Audience,
		IsPublished: a.IsPublished,
		PublishedAt: a.PublishedAt,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (r announcementRow) setMap() map[string]interface{} {
	return map[string]interface{}{
		"title":        r.Title,
		"body":         r.Body,
		"audience":     r.Audience,
		"is_published": r.IsPublished,
		"published_at": r.PublishedAt,
		"created_by":   r.CreatedBy,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
}

func (r announcementRow) announcement() announcement.Announcement {
	return announcement.Announcement{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		Audience:    r.Audience,
		IsPublished: r.IsPublished,
		PublishedAt: r.PublishedAt,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	a.ID = uuid.New().String()
	r := newAnnouncementRow(a)
	vals := r.setMap()
	vals["id"] = r.ID
	if _, err := exec(ctx, repo.db, psql.Insert("announcements").SetMap(vals)); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return r.announcement(), nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id string) (announcement.Announcement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	var r announcementRow
	if err := get(ctx, repo.db, &r, psql.Select(announcementColumns...).From("announcements").Where(sq.Eq{"id": id})); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "finding announcement")
	}
	return r.announcement(), nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, filter announcement.QueryFilter) ([]announcement.Announcement, error) {
	b := psql.Select(announcementColumns...).From("announcements").OrderBy("COALESCE(published_at, created_at) DESC")
	if filter.OnlyPublished {
		b = b.Where(sq.Eq{"is_published": true})
	}
	if filter.Audience != "" {
		b = b.Where(sq.Eq{"audience": []string{filter.Audience, announcement.AudienceAll}})
	}

	var rows []announcementRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	as := make([]announcement.Announcement, 0, len(rows))
	for _, r := range rows {
		as = append(as, r.announcement())
	}
	return as, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	r := newAnnouncementRow(a)
	n, err := exec(ctx, repo.db, psql.Update("announcements").SetMap(r.setMap()).Where(sq.Eq{"id": r.ID}))
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return r.announcement(), nil
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, psql.Delete("announcements").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	if n == 0 {
		return announcement.ErrNotFound
	}
	return nil
}
