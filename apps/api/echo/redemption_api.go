package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/redemption"
)

type redemptionApi struct {
	svc      redemption.Service
	validate *validator.Validate
}

func registerRedemptionAPI(
	g *echo.Group,
	jwt, limit, admin echo.MiddlewareFunc,
	svc redemption.Service,
	validate *validator.Validate,
) {
	api := redemptionApi{svc: svc, validate: validate}

	rg := g.Group("/redemptions", jwt)
	rg.POST("", api.redeem, limit)
	rg.GET("", api.query)

	g.GET("/admin/redemptions", api.queryRecent, jwt, admin)
}

func (api *redemptionApi) redeem(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data redemption.RedeemRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RedeemRequest")
	}
	if key := ctx.Request().Header.Get(headerIdempotencyKey); key != "" {
		data.IdempotencyKey = key
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	receipt, err := api.svc.Redeem(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "redeeming offer")
	}
	if receipt.Replayed {
		return ctx.JSON(http.StatusOK, receipt)
	}
	return ctx.JSON(http.StatusCreated, receipt)
}

func (api *redemptionApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	receipts, err := api.svc.ListByUser(ctx.Request().Context(), claims.Subject, queryInt(ctx, limitParam))
	if err != nil {
		return errors.Wrap(err, "listing redemptions")
	}
	if receipts == nil {
		receipts = []redemption.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}

func (api *redemptionApi) queryRecent(ctx echo.Context) error {
	receipts, err := api.svc.ListRecent(ctx.Request().Context(), queryInt(ctx, limitParam))
	if err != nil {
		return errors.Wrap(err, "listing redemptions")
	}
	if receipts == nil {
		receipts = []redemption.Receipt{}
	}
	return ctx.JSON(http.StatusOK, receipts)
}
