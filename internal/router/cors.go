package router

import (
	"net/http"
	"strings"

	"FleetAPI/internal/config"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, " + requestIDHeader
	corsMaxAge       = "86400"
)

// corsPolicy is the parsed CORS_ALLOW_ORIGIN setting.
type corsPolicy struct {
	any         bool
	origins     map[string]struct{}
	credentials bool
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{origins: map[string]struct{}{}, credentials: cfg.AllowCredentials}
	for _, o := range strings.Split(cfg.AllowOrigin, ",") {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	// пустой список трактуем как "*"
	if len(p.origins) == 0 {
		p.any = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin,
// "" when the origin is refused, and whether the answer depends on the origin.
func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.any {
		// "*" is not valid together with credentials
		if p.credentials && origin != "" {
			return origin, true
		}
		return "*", false
	}
	if _, ok := p.origins[origin]; ok && origin != "" {
		return origin, true
	}
	return "", true
}

// CORS returns chi middleware for the cfg policy. OPTIONS requests are
// answered here and never reach next.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			value, vary := policy.allowOrigin(r.Header.Get("Origin"))
			if vary {
				h.Add("Vary", "Origin")
			}
			if value != "" {
				h.Set("Access-Control-Allow-Origin", value)
				if policy.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.Set("Access-Control-Expose-Headers", requestIDHeader)
			next.ServeHTTP(w, r)
		})
	}
}
