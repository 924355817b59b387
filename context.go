package goProof

import "context"

type clientIPContextKey struct{}
type requesterContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP issuance throttling and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequester attaches the display name of whoever submitted the request.
// It only appears in audit events.
func WithRequester(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, requesterContextKey{}, name)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func requesterFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	name, _ := ctx.Value(requesterContextKey{}).(string)
	return name
}

// ClientIPFromContext returns the IP attached with WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

// RequesterFromContext returns the name attached with WithRequester, or "".
func RequesterFromContext(ctx context.Context) string {
	return requesterFromContext(ctx)
}
