package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "transport-request-system/pkg/errors"
)

// CustomValidator - обертка для использования в Echo и в сервисах.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator.
// Ошибки правил превращаются в *apperrors.ValidationError с именами полей из json-тегов.
func (cv *CustomValidator) Validate(i interface{}) error {
	return toValidationError(cv.validator.Struct(i))
}

// New создает и настраивает валидатор.
func New() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	registerNullTypes(v)

	// без правил сервер стартовать не должен
	if err := registerRules(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		fields[fe.Field()] = describe(fe)
	}
	return apperrors.NewValidationError("ошибка валидации данных", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "обязательное поле"
	case "max":
		return "не длиннее " + fe.Param() + " символов"
	case "phone":
		return "некорректный номер телефона"
	case "application_number":
		return "номер должен иметь вид ГГГГММДД-NNNN"
	case "application_status":
		return "неизвестный статус"
	case "gtefield":
		return "не может быть раньше поля " + fe.Param()
	default:
		return "не прошло проверку " + fe.Tag()
	}
}
