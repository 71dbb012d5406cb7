package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// JWT
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Заявки
	ErrNotFound             = fmt.Errorf("запись не найдена")
	ErrConcurrencyConflict  = fmt.Errorf("заявка была изменена другим пользователем, обновите данные и повторите")
	ErrTransitionNotAllowed = fmt.Errorf("переход между статусами запрещён")
	// ErrHistoryOutOfOrder - нарушен порядок истории по дате. Ошибка сервера, не клиента.
	ErrHistoryOutOfOrder = fmt.Errorf("запись истории нарушает порядок по дате")

	// Общие
	ErrBadRequest = fmt.Errorf("неверный запрос")
)

// ValidationError - обязательное поле не заполнено или заполнено неверно.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func NewValidationError(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// StorageError - сбой хранилища. Исходная ошибка доступна через errors.Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// HttpError - ошибка для отдачи клиенту с конкретным HTTP-кодом.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, ctx map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: ctx}
}
