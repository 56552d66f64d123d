package service

import (
	"context"
	"log/slog"
	"time"

	"yamdb/internal/events"
	"yamdb/internal/http-api/permission"
)

const publishTimeout = 3 * time.Second

// authorize runs the object-level content check.
func authorize(caller *permission.Caller, method string, authorID int64) error {
	if permission.ContentWrite.HasObjectPermission(caller, method, authorID) {
		return nil
	}
	if !caller.Authenticated() {
		return ErrUnauthorized
	}
	return ErrForbidden
}

// publish sends an event without failing the request that produced it.
func publish(ctx context.Context, p events.Publisher, logger *slog.Logger, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "type", ev.Type, "error", err)
	}
}
