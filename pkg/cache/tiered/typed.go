package tiered

import (
	"context"
	"fmt"
)

// GetTyped is a generic convenience over GetWithLoader for callers who know
// their value's concrete type (§14). A value decoded from L2 as a generic
// any (e.g. map[string]any from the JSON codec) that cannot be asserted to
// T yields ErrTypeMismatch rather than a panic.
func GetTyped[T any](ctx context.Context, c Cache, key string, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetWithLoader(ctx, key, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: expected %T, got %T", ErrTypeMismatch, zero, v)
	}
	return typed, nil
}
