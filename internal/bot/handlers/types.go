package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/form"
)

// Handler processes bot updates.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Conversation is the intake form as seen by the transport.
type Conversation interface {
	Start(ctx context.Context, userID int64) (form.Reply, error)
	Cancel(ctx context.Context, userID int64) (form.Reply, error)
	Help() form.Reply
	Handle(ctx context.Context, userID int64, text string) (form.Reply, error)
}

const contextKey = "request_ctx"

// WithContext attaches ctx to the update so downstream handlers share it.
func WithContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}

// Context returns the context attached by WithContext or context.Background.
func Context(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}
