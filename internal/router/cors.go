package router

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, " + RequestIDHeader
	corsExposeHeaders = "Location, " + RequestIDHeader
)

// corsPolicy is CORS_ALLOW_ORIGIN parsed once: "*", or a comma-separated
// list of exact origins.
type corsPolicy struct {
	origins     map[string]bool
	wildcard    bool
	credentials bool
}

func newCORSPolicy(allowOrigin string, allowCredentials bool) corsPolicy {
	p := corsPolicy{origins: map[string]bool{}, credentials: allowCredentials}
	for _, o := range strings.Split(allowOrigin, ",") {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = true
		}
	}
	if len(p.origins) == 0 {
		p.wildcard = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin ("" to omit it) and whether the answer depends on Origin.
// Credentials cannot be combined with "*", so the origin is echoed instead.
func (p corsPolicy) allowOrigin(requestOrigin string) (string, bool) {
	if p.wildcard {
		if p.credentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if p.origins[requestOrigin] {
		return requestOrigin, true
	}
	return "", true
}

// withCORS adds CORS headers and answers preflight requests.
func withCORS(allowOrigin string, allowCredentials bool, h http.HandlerFunc) http.HandlerFunc {
	policy := newCORSPolicy(allowOrigin, allowCredentials)
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		origin, vary := policy.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			hdr.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			hdr.Set("Vary", "Origin")
		}
		if policy.credentials {
			hdr.Set("Access-Control-Allow-Credentials", "true")
		}
		hdr.Set("Access-Control-Allow-Methods", corsAllowMethods)
		hdr.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		hdr.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		hdr.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}
