package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/activity"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/stats"
)

type adminApi struct {
	profileSvc  profile.Service
	activitySvc activity.Service
	statsSvc    stats.Service
}

func registerAdminAPI(
	g *echo.Group,
	jwt, admin echo.MiddlewareFunc,
	profileSvc profile.Service,
	activitySvc activity.Service,
	statsSvc stats.Service,
) {
	api := adminApi{profileSvc: profileSvc, activitySvc: activitySvc, statsSvc: statsSvc}

	ag := g.Group("/admin", jwt, admin)
	ag.GET("/stats", api.stats)
	ag.GET("/activity", api.queryActivity)
	ag.GET("/students", api.queryStudents)
	ag.PUT("/students/:id/verification", api.verifyStudent)
	ag.DELETE("/students/:id/verification", api.unverifyStudent)
}

func (api *adminApi) stats(ctx echo.Context) error {
	dash, err := api.statsSvc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *adminApi) queryActivity(ctx echo.Context) error {
	filter := activity.QueryFilter{
		UserID:     ctx.QueryParam("user_id"),
		Action:     ctx.QueryParam("action"),
		EntityType: ctx.QueryParam("entity_type"),
		Limit:      queryInt(ctx, limitParam),
	}
	logs, err := api.activitySvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying activity")
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *adminApi) queryStudents(ctx echo.Context) error {
	filter := &profile.QueryFilter{
		Search:     ctx.QueryParam("search"),
		UserType:   profile.TypeStudent,
		IsVerified: queryBool(ctx, "verified"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.profileSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) verifyStudent(ctx echo.Context) error {
	return api.setVerified(ctx, true)
}

func (api *adminApi) unverifyStudent(ctx echo.Context) error {
	return api.setVerified(ctx, false)
}

func (api *adminApi) setVerified(ctx echo.Context, verified bool) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	p, err := api.profileSvc.SetVerified(ctx.Request().Context(), claims.Subject, ctx.Param("id"), verified)
	if err != nil {
		return errors.Wrap(err, "setting verification")
	}
	return ctx.JSON(http.StatusOK, p)
}
