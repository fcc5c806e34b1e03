// Package api holds the helpers shared by the HTTP handlers: bearer
// authentication, JSON encoding and the mapping of domain errors to status
// codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	coreauth "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/auth"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/monitoring"
)

// Clock returns the current time. Handlers take one so tests can pin it.
type Clock func() time.Time

// OrNow returns c, or time.Now when c is nil.
func (c Clock) OrNow() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// ErrorBody is the JSON payload of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps a domain error to an HTTP status and a short code.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, coreauth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case model.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case model.IsCapacity(err):
		return http.StatusConflict, "capacity"
	case errors.Is(err, model.ErrVehicleNotInPlay):
		return http.StatusConflict, "not_in_play"
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrInvalidParty):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteError writes err with its mapped status. Unexpected errors are
// reported to the monitor with the request route.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusOf(err)
	if status == http.StatusInternalServerError {
		monitoring.CaptureException(err, monitoring.Tags("route", r.URL.Path, "method", r.Method))
	}
	WriteJSON(w, status, ErrorBody{Error: err.Error(), Code: code})
}

// DecodeJSON reads the request body into v. Decoding failures wrap
// model.ErrInvalidRequest.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(model.ErrInvalidRequest, err)
	}
	return nil
}

// Authenticate resolves the bearer token of each request and stores the
// caller on its context. Requests without a token pass through anonymous;
// handlers that need a caller use RequireCaller. A nil resolver rejects
// every presented token.
func Authenticate(res coreauth.Resolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || res == nil {
			WriteError(w, r, coreauth.ErrUnauthenticated)
			return
		}
		caller, err := res.Resolve(r.Context(), strings.TrimSpace(token))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(coreauth.WithCaller(r.Context(), caller)))
	})
}

// RequireCaller returns the authenticated caller or writes a 401.
func RequireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := coreauth.Caller(r.Context())
	if !ok {
		WriteError(w, r, coreauth.ErrUnauthenticated)
	}
	return id, ok
}

// Method rejects requests whose method differs from m.
func Method(m string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
