package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Policy lists the response headers applied to every page. Dynamic pages carry
// account balances, so they are marked no-store unless a later handler (the
// static file server) replaces Cache-Control.
type Policy struct {
	ScriptSources []string
	StyleSources  []string
	ImageSources  []string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	FrameOptions   string
	ReferrerPolicy string
	CacheControl   string
}

// DefaultPolicy allows scripts, styles and images from the same origin only.
func DefaultPolicy() Policy {
	return Policy{
		ScriptSources: []string{"'self'"},
		StyleSources:  []string{"'self'"},
		ImageSources:  []string{"'self'", "data:"},

		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,

		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		CacheControl:   "no-store",
	}
}

// ContentSecurityPolicy renders the CSP header value.
func (p Policy) ContentSecurityPolicy() string {
	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(p.ScriptSources, " "),
		"style-src " + strings.Join(p.StyleSources, " "),
		"img-src " + strings.Join(p.ImageSources, " "),
		"connect-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}

func (p Policy) hsts() string {
	if p.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(p.HSTSMaxAge)
	if p.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// Headers sets the policy on every response. Header values are rendered once.
func Headers(p Policy) func(http.Handler) http.Handler {
	fixed := [][2]string{
		{"Content-Security-Policy", p.ContentSecurityPolicy()},
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", p.FrameOptions},
		{"Referrer-Policy", p.ReferrerPolicy},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}
	if p.CacheControl != "" {
		fixed = append(fixed, [2]string{"Cache-Control", p.CacheControl})
	}
	hsts := p.hsts()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range fixed {
				if kv[1] != "" {
					h.Set(kv[0], kv[1])
				}
			}
			// browsers ignore HSTS over plain HTTP
			if r.TLS != nil && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
