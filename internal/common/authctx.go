package common

import "context"

type ctxKey string

const subjectKey ctxKey = "auth/subject"

// WithSubject stores the authenticated API client identifier on the context.
func WithSubject(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectKey, id)
}

// Subject returns the authenticated API client identifier if present.
func Subject(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectKey).(string)
	return id, ok && id != ""
}
