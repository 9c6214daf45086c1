// Package apperr описывает таксономию ошибок портала и их соответствие HTTP-статусам.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindInvalidTransition
	KindConflict
	KindNotFound
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindForbidden:
		return "forbidden"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal_error"
	}
}

// HTTPStatus возвращает код ответа для вида ошибки.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Fields: ошибки по полям для KindValidation
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по виду, чтобы работали errors.Is(err, apperr.ErrConflict) и т.п.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Retryable: конфликт параллельного изменения можно повторить.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict
}

// Шаблоны для errors.Is
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
)

func Validation(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "validation failed",
		Fields:  map[string]string{field: msg},
	}
}

func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// Forbidden намеренно без подробностей.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "access denied"}
}

func InvalidTransition(reason string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: reason}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf возвращает вид ошибки; всё неизвестное считается внутренней ошибкой.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Response: тело ответа с ошибкой.
type Response struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// ResponseOf строит тело ответа; внутренние подробности наружу не уходят.
func ResponseOf(err error) (int, Response) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Response{Error: "internal server error", Code: KindInternal.String()}
	}
	resp := Response{
		Error:     e.Message,
		Code:      e.Kind.String(),
		Fields:    e.Fields,
		Retryable: e.Retryable(),
	}
	if e.Kind == KindInternal {
		resp.Error = "internal server error"
	}
	return e.Kind.HTTPStatus(), resp
}

// WriteJSON пишет ошибку в ответ с кодом по ее виду.
func WriteJSON(w http.ResponseWriter, err error) {
	status, resp := ResponseOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
