package utils

import (
	"context"

	"transport-request-system/pkg/contextkeys"
)

// ActorFromContext возвращает имя пользователя из контекста или пустую строку.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(contextkeys.ActorKey).(string)
	return actor
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}
