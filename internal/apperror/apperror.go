package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies an error so the transport layers (HTTP handlers, the
// websocket frame loop) can map it to a rejection without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInvalidState
)

type Error struct {
	Kind    Kind   `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Authentication(message string) *Error { return New(KindAuthentication, message) }
func Authorization(message string) *Error  { return New(KindAuthorization, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }
func InvalidState(message string) *Error   { return New(KindInvalidState, message) }

// KindOf unwraps err and reports its Kind. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON renders err as the structured error body used by the CRUD surface.
func WriteJSON(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))

	body := struct {
		Message string `json:"message"`
	}{Message: err.Error()}
	json.NewEncoder(w).Encode(body)
}
