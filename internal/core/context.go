package core

import "context"

type clientKey struct{}

// Client identifies who triggered a load. It is recorded in the load history.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient returns a copy of ctx carrying c.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the client stored by WithClient, or the zero
// Client.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
