package instrument

import "context"

type correlationKey struct{}

// SetCorrelationID stores id in ctx. Log records and published events carry
// it so one request can be followed across services.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the id stored by SetCorrelationID, or "".
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
