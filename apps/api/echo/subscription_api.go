package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/subscription"
)

type subscriptionApi struct {
	svc      subscription.Service
	validate *validator.Validate
}

func registerSubscriptionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc subscription.Service, validate *validator.Validate) {
	api := subscriptionApi{svc: svc, validate: validate}

	g.GET("/plans", api.queryPlans)

	sg := g.Group("/subscriptions", jwt)
	sg.GET("/current", api.current)
	sg.POST("", api.subscribe)
	sg.DELETE("/current", api.cancel)
}

func (api *subscriptionApi) queryPlans(ctx echo.Context) error {
	plans, err := api.svc.ListPlans(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing plans")
	}
	if plans == nil {
		plans = []subscription.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *subscriptionApi) current(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sub, err := api.svc.Current(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting current subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subscriptionApi) subscribe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data subscription.NewSubscription
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscription")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	sub, err := api.svc.Subscribe(ctx.Request().Context(), claims.Subject, data.PlanID)
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subscriptionApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sub, err := api.svc.Cancel(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "cancelling subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}
