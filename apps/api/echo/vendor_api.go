package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/offer"
	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core/vendor"
)

type vendorApi struct {
	svc      vendor.Service
	offerSvc offer.Service
	validate *validator.Validate
}

func registerVendorAPI(
	g *echo.Group,
	jwt, optionalJWT, admin echo.MiddlewareFunc,
	svc vendor.Service,
	offerSvc offer.Service,
	validate *validator.Validate,
) {
	api := vendorApi{svc: svc, offerSvc: offerSvc, validate: validate}

	// public endpoints
	vg := g.Group("/vendors")
	vg.GET("", api.query)
	vg.GET("/:id", api.retrieve, optionalJWT)

	// favorites
	fg := g.Group("/favorites", jwt)
	fg.GET("", api.queryFavorites)
	fg.PUT("/:vendorId", api.addFavorite)
	fg.DELETE("/:vendorId", api.removeFavorite)

	// admin endpoints
	ag := g.Group("/admin", jwt, admin)
	ag.GET("/vendors", api.adminQuery)
	ag.POST("/vendors", api.create)
	ag.GET("/vendors/:id", api.adminRetrieve)
	ag.PUT("/vendors/:id", api.update)
	ag.DELETE("/vendors/:id", api.destroy)
	ag.POST("/vendors/:id/offers", api.createOffer)
	ag.PUT("/offers/:id", api.updateOffer)
	ag.DELETE("/offers/:id", api.destroyOffer)
	ag.POST("/offers/:id/qrcodes", api.generateQRCode)
	ag.DELETE("/qrcodes/:id", api.deactivateQRCode)
}

// Public handlers

func (api *vendorApi) query(ctx echo.Context) error {
	filter := &vendor.QueryFilter{
		Category: ctx.QueryParam("category"),
		Search:   ctx.QueryParam("search"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	vendors, err := api.svc.List(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing vendors")
	}
	if vendors == nil {
		vendors = []vendor.Listing{}
	}
	return ctx.JSON(http.StatusOK, vendors)
}

func (api *vendorApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	detail, err := api.offerSvc.PublicVendorDetail(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting vendor detail")
	}

	if claims, cErr := getContextClaims(ctx); cErr == nil {
		isFav, err := api.svc.IsFavorite(reqCtx, claims.Subject, detail.ID)
		if err != nil {
			return errors.Wrap(err, "checking favorite")
		}
		detail.IsFavorite = &isFav
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *vendorApi) queryFavorites(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	vendors, err := api.svc.ListFavorites(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing favorites")
	}
	if vendors == nil {
		vendors = []vendor.Listing{}
	}
	return ctx.JSON(http.StatusOK, vendors)
}

func (api *vendorApi) addFavorite(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.AddFavorite(ctx.Request().Context(), claims.Subject, ctx.Param("vendorId")); err != nil {
		return errors.Wrap(err, "adding favorite")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *vendorApi) removeFavorite(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.RemoveFavorite(ctx.Request().Context(), claims.Subject, ctx.Param("vendorId")); err != nil {
		return errors.Wrap(err, "removing favorite")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Admin handlers

func (api *vendorApi) adminQuery(ctx echo.Context) error {
	filter := &vendor.QueryFilter{
		Category:        ctx.QueryParam("category"),
		Search:          ctx.QueryParam("search"),
		IncludeInactive: true,
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	vendors, err := api.svc.AdminList(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing vendors")
	}
	if vendors == nil {
		vendors = []vendor.Listing{}
	}
	return ctx.JSON(http.StatusOK, vendors)
}

func (api *vendorApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data vendor.VendorData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VendorData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating vendor")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *vendorApi) adminRetrieve(ctx echo.Context) error {
	detail, err := api.offerSvc.AdminVendorDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting vendor detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *vendorApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data vendor.VendorData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VendorData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating vendor")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *vendorApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting vendor")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *vendorApi) createOffer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data offer.OfferData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OfferData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	o, qr, err := api.offerSvc.Create(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating offer")
	}
	return ctx.JSON(http.StatusCreated, OfferResponse{Offer: o, QRCode: qr})
}

func (api *vendorApi) updateOffer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data offer.OfferData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OfferData")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	o, err := api.offerSvc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating offer")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *vendorApi) destroyOffer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.offerSvc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting offer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *vendorApi) generateQRCode(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	qr, err := api.offerSvc.GenerateQRCode(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "generating QR code")
	}
	return ctx.JSON(http.StatusCreated, qr)
}

func (api *vendorApi) deactivateQRCode(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	qr, err := api.offerSvc.DeactivateQRCode(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating QR code")
	}
	return ctx.JSON(http.StatusOK, qr)
}

type OfferResponse struct {
	Offer  offer.Offer  `json:"offer"`
	QRCode offer.QRCode `json:"qr_code"`
}
