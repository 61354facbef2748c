package bus

import "context"

type depthKey struct{}

// depthFrom reports how many publishes enclose the current handler call.
func depthFrom(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey{}).(int)
	return depth
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// Depth exposes the nesting level to handlers that want to log it.
func Depth(ctx context.Context) int {
	return depthFrom(ctx)
}
