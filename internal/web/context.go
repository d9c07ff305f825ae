package web

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey int

const confirmKey contextKey = iota

// ContextWithConfirm stores the user's answer to a confirmation prompt.
func ContextWithConfirm(ctx context.Context, answer bool) context.Context {
	return context.WithValue(ctx, confirmKey, answer)
}

// ConfirmFromContext returns the stored answer and whether one was given.
func ConfirmFromContext(ctx context.Context) (answer, ok bool) {
	answer, ok = ctx.Value(confirmKey).(bool)
	return answer, ok
}

// withConfirm copies the confirm query parameter into the request context so
// the Controller's Prompter can read it while handling the request.
func withConfirm(r *http.Request) context.Context {
	ctx := r.Context()
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		return ctx
	}
	answer, err := strconv.ParseBool(raw)
	if err != nil {
		return ctx
	}
	return ContextWithConfirm(ctx, answer)
}
