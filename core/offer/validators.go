package offer

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

var (
	discountTypeTag  = "discounttype"
	discountTypeText = "discount type must be percentage or fixed_amount"

	discountValueTag    = "discountvalue"
	discountValueText   = "discount value must be greater than 0"
	percentageValueTag  = "percentagevalue"
	percentageValueText = "percentage must be between 0 and 100"
	maxPercentage       = decimal.NewFromInt(100)
)

// InitValidators registers the offer validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(discountTypeTag, core.OneOfValidation(DiscountTypes...))
	core.RegisterCustomTranslation(validate, translator, discountTypeTag, discountTypeText)

	validate.RegisterStructValidation(offerStructValidation, OfferData{})
	core.RegisterCustomTranslation(validate, translator, discountValueTag, discountValueText)
	core.RegisterCustomTranslation(validate, translator, percentageValueTag, percentageValueText)
}

// offerStructValidation checks the discount value against the discount type.
func offerStructValidation(sl validator.StructLevel) {
	od, ok := sl.Current().Interface().(OfferData)
	if !ok {
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(od.DiscountValue, "discount_value", "DiscountValue", tag, "")
	}

	if !od.DiscountValue.IsPositive() {
		reportErr(discountValueTag)
		return
	}
	if od.DiscountType == DiscountTypePercentage && od.DiscountValue.GreaterThan(maxPercentage) {
		reportErr(percentageValueTag)
	}
}
