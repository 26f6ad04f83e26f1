package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/announcement"
)

type announcementApi struct {
	svc      announcement.Service
	validate *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, svc announcement.Service, validate *validator.Validate) {
	api := announcementApi{svc: svc, validate: validate}

	g.GET("/announcements", api.queryPublished)

	ag := g.Group("/admin/announcements", jwt, admin)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *announcementApi) queryPublished(ctx echo.Context) error {
	items, err := api.svc.ListPublished(ctx.Request().Context(), ctx.QueryParam("audience"))
	if err != nil {
		return errors.Wrap(err, "listing announcements")
	}
	if items == nil {
		items = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *announcementApi) query(ctx echo.Context) error {
	items, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing announcements")
	}
	if items == nil {
		items = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *announcementApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data announcement.AnnouncementData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnnouncementData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data announcement.AnnouncementData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnnouncementData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
