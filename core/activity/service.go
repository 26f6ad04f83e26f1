package activity

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

const subjectPrefix = "activity."

type (
	Repository interface {
		CreateLog(ctx context.Context, l Log) (Log, error)
		QueryLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
	}

	// Service records what happened, and who did it.
	// Recording never fails the calling operation: errors are logged.
	Service interface {
		Record(ctx context.Context, l Log)
		Query(ctx context.Context, filter QueryFilter) ([]Log, error)
	}

	service struct {
		repo      Repository
		publisher core.EventPublisher
		logger    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, publisher core.EventPublisher, logger core.Logger) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(publisher, "publisher"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &service{repo: repo, publisher: publisher, logger: logger}
}

func (svc *service) Record(ctx context.Context, l Log) {
	l.CreatedAt = core.Now()
	saved, err := svc.repo.CreateLog(ctx, l)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording activity %q: %v", l.Action, err), err)
		return
	}
	if err = svc.publisher.Publish(ctx, subjectPrefix+saved.Action, saved); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing activity %q: %v", l.Action, err), err)
	}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Log, error) {
	filter.Clean()
	return svc.repo.QueryLogs(ctx, filter)
}
