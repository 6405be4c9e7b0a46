package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/creditbook/internal/ledger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duedays", func(fl validator.FieldLevel) bool {
		return ledger.ValidDueDays(int(fl.Field().Int()))
	})
	return v
}

// Struct проверяет структуру запроса по тегам `validate`.
func Struct(v any) error {
	return validate.Struct(v)
}

// FieldErrors возвращает нарушенные правила по именам полей.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	res := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		res[fe.Field()] = fe.Tag()
	}
	return res
}
