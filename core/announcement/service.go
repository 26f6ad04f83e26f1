package announcement

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
)

var (
	// errors
	ErrNotFound = errors.New("announcement not found")
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		// QueryAnnouncements lists announcements newest first.
		QueryAnnouncements(ctx context.Context, filter QueryFilter) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, actorID string, data AnnouncementData) (Announcement, error)
		Update(ctx context.Context, actorID, id string, data AnnouncementData) (Announcement, error)
		Delete(ctx context.Context, actorID, id string) error
		// ListPublished lists the announcements published for the audience or for everyone.
		ListPublished(ctx context.Context, audience string) ([]Announcement, error)
		List(ctx context.Context) ([]Announcement, error)
	}

	service struct {
		repo        Repository
		activitySvc activity.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, activitySvc activity.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(activitySvc, "activitySvc"),
	).CheckAndPanic()

	return &service{repo: repo, activitySvc: activitySvc}
}

func (svc *service) Create(ctx context.Context, actorID string, data AnnouncementData) (Announcement, error) {
	now := core.Now()
	a := Announcement{
		CreatedBy: null.NewString(actorID, actorID != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data.apply(&a, now)

	a, err := svc.repo.CreateAnnouncement(ctx, a)
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionAnnouncementCreated, activity.EntityAnnouncement, a.ID, activity.Details{
		"title":     a.Title,
		"published": a.IsPublished,
	}))
	return a, nil
}

func (svc *service) Update(ctx context.Context, actorID, id string, data AnnouncementData) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	now := core.Now()
	data.apply(&a, now)
	a.UpdatedAt = now

	if a, err = svc.repo.UpdateAnnouncement(ctx, a); err != nil {
		return Announcement{}, errors.Wrap(err, "updating announcement")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionAnnouncementUpdated, activity.EntityAnnouncement, a.ID, activity.Details{
		"title":     a.Title,
		"published": a.IsPublished,
	}))
	return a, nil
}

func (svc *service) Delete(ctx context.Context, actorID, id string) error {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteAnnouncement(ctx, id); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}

	svc.activitySvc.Record(ctx, activity.NewLog(actorID, activity.ActionAnnouncementDeleted, activity.EntityAnnouncement, a.ID, activity.Details{
		"title": a.Title,
	}))
	return nil
}

func (svc *service) ListPublished(ctx context.Context, audience string) ([]Announcement, error) {
	audience = core.CleanString(audience, true /* lower */)
	if audience == "" {
		audience = AudienceAll
	}
	return svc.repo.QueryAnnouncements(ctx, QueryFilter{Audience: audience, OnlyPublished: true})
}

func (svc *service) List(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx, QueryFilter{})
}
