package security

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"

	"tailscale.com/ipn"
)

type contextKey string

const connectionContextKey contextKey = "connection"

// ConnContext stores the accepted connection in the request context so
// TailscaleFunnelIP can find it. Assign it to http.Server.ConnContext.
func ConnContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, connectionContextKey, c)
}

// Hack to set http.Request.RemoteAddr to the client's IP address
//
// See Tailscale snippet for reference:
// <https://github.com/tailscale/tailscale/blob/8d7033f/cmd/tsidp/tsidp.go#L1040-L1059>
func TailscaleFunnelIP(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			v := r.Context().Value(connectionContextKey)
			if v == nil {
				logger.Warn("expected request context to set connection",
					"RemoteAddr", r.RemoteAddr)
			} else if netConn, ok := v.(net.Conn); ok {
				if tlsConn, ok := netConn.(*tls.Conn); ok {
					netConn = tlsConn.NetConn()
				}
				if funnelConn, ok := netConn.(*ipn.FunnelConn); ok {
					realRemoteAddr := funnelConn.Src.String()
					logger.Debug("changing request RemoteAddr", "from", r.RemoteAddr, "to", realRemoteAddr)
					r.RemoteAddr = realRemoteAddr
				} else {
					logger.Debug("request connection is not a funnel connection", "RemoteAddr", r.RemoteAddr)
				}
			} else {
				logger.Warn("expected request context connection to be a net.Conn, but was",
					"contextValue", v,
					"RemoteAddr", r.RemoteAddr)
			}
			h.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
