package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/web/middleware"
)

// withClient tags ctx with the caller's address and user agent for load
// history. RemoteAddr has already been rewritten by TrustedRealIP.
func withClient(ctx context.Context, r *http.Request) context.Context {
	return core.WithClient(ctx, core.Client{
		IP:        middleware.ClientIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
	})
}
