package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/profile"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

func registerMetaAPI(g *echo.Group) {
	mg := g.Group("/meta")
	mg.GET("/universities", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, profile.Universities)
	})
	mg.GET("/categories", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, vendor.Categories)
	})
	mg.GET("/discount-types", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, offer.DiscountTypes)
	})
}
