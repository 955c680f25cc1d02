package refresher

import "context"

type tickKey struct{}

func withTickID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tickKey{}, id)
}

// tickIDFrom returns the id of the tick ctx belongs to, or "" for a lone refresh.
func tickIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(tickKey{}).(string)
	return id
}
