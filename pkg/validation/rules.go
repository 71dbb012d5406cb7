package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"transport-request-system/internal/entities"
)

var (
	phoneRegex  = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{4,19}$`)
	numberRegex = regexp.MustCompile(`^\d{8}-\d{4}$`)
)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"notblank":           isNotBlank,
		"phone":              isPhone,
		"application_number": isApplicationNumber,
		"application_status": isApplicationStatus,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// isNotBlank - строка не пустая и не из одних пробелов
func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isPhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// isApplicationNumber - формат ГГГГММДД-NNNN
func isApplicationNumber(fl validator.FieldLevel) bool {
	return numberRegex.MatchString(fl.Field().String())
}

func isApplicationStatus(fl validator.FieldLevel) bool {
	_, err := entities.ParseApplicationStatus(fl.Field().String())
	return err == nil
}
