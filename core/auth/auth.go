// Package auth defines how a request's caller identity is resolved.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when no valid credential is presented.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps a bearer credential to the caller's staff id.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (string, error)
}

type callerKey struct{}

// WithCaller stores the resolved caller on the context.
func WithCaller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// Caller returns the caller stored by WithCaller.
func Caller(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerKey{}).(string)
	return id, ok && id != ""
}
