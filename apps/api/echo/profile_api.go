package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

const dashboardRedemptions = 5

type profileApi struct {
	svc             profile.Service
	subscriptionSvc subscription.Service
	redemptionSvc   redemption.Service
	validate        *validator.Validate
}

func registerProfileAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc profile.Service,
	subscriptionSvc subscription.Service,
	redemptionSvc redemption.Service,
	validate *validator.Validate,
) {
	api := profileApi{
		svc:             svc,
		subscriptionSvc: subscriptionSvc,
		redemptionSvc:   redemptionSvc,
		validate:        validate,
	}

	g.GET("/profile", api.retrieve, jwt)
	g.PUT("/profile", api.update, jwt)
	g.GET("/dashboard", api.dashboard, jwt)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) update(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	var data profile.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if p, err = api.svc.UpdateOwn(ctx.Request().Context(), p.ID, data); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) dashboard(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	reqCtx := ctx.Request().Context()

	resp := DashboardResponse{Profile: p}

	sub, err := api.subscriptionSvc.Current(reqCtx, p.ID)
	switch errors.Cause(err) {
	case nil:
		resp.Subscription = &sub
		resp.DaysLeft = sub.DaysLeft(core.Now())
	case subscription.ErrNotFound:
	default:
		return errors.Wrap(err, "getting current subscription")
	}

	if resp.TotalRedemptions, err = api.redemptionSvc.Count(reqCtx, p.ID); err != nil {
		return errors.Wrap(err, "counting redemptions")
	}
	if resp.RecentRedemptions, err = api.redemptionSvc.ListByUser(reqCtx, p.ID, dashboardRedemptions); err != nil {
		return errors.Wrap(err, "listing redemptions")
	}
	if resp.RecentRedemptions == nil {
		resp.RecentRedemptions = []redemption.Receipt{}
	}
	return ctx.JSON(http.StatusOK, resp)
}

type DashboardResponse struct {
	Profile           profile.Profile            `json:"profile"`
	Subscription      *subscription.Subscription `json:"subscription"`
	DaysLeft          int                        `json:"days_left"`
	TotalRedemptions  int                        `json:"total_redemptions"`
	RecentRedemptions []redemption.Receipt       `json:"recent_redemptions"`
}
