package announcement

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

var (
	audienceTag  = "audience"
	audienceText = "audience must be all, students or vendors"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(audienceTag, core.OneOfValidation(Audiences...))
	core.RegisterCustomTranslation(validate, translator, audienceTag, audienceText)
}
