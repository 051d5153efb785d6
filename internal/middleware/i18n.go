package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// Caption locales the planner writes in.
const (
	LocaleEnglish    = "en"
	LocaleIndonesian = "id"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

var (
	captionLocales = []language.Tag{language.English, language.Indonesian}
	localeMatcher  = language.NewMatcher(captionLocales)
)

// Set by the CDN or load balancer in front of the API, most trusted first.
var edgeCountryHeaders = []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"}

// CountryLookup resolves an ISO country code for a client IP.
type CountryLookup func(ip string) (string, error)

// I18N stores the caption locale and, when known, the caller's country in
// the request context. An explicit X-Locale wins, then Accept-Language,
// then the country, then defaultLocale.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	fallback := LocaleEnglish
	if strings.TrimSpace(defaultLocale) != "" {
		fallback = normalizeLocale(defaultLocale)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, detectLocale(r, fallback, country))
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return normalizeLocale(v)
	}
	if v := parseAcceptLanguage(r.Header.Get("Accept-Language")); v != "" {
		return v
	}
	switch {
	case country == "ID":
		return LocaleIndonesian
	case country != "":
		return LocaleEnglish
	case fallback != "":
		return fallback
	}
	return LocaleEnglish
}

// parseAcceptLanguage matches an Accept-Language header against the caption
// locales. It returns "" when the header is empty or unparsable.
func parseAcceptLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, _ := localeMatcher.Match(tags...)
	return captionLocales[idx].String()
}

// normalizeLocale maps any locale string onto a caption locale.
func normalizeLocale(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return LocaleEnglish
	}
	_, idx, _ := localeMatcher.Match(tag)
	return captionLocales[idx].String()
}

// LocaleFromContext returns the caption locale, "en" when unset.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return LocaleEnglish
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry returns an upper-case ISO country code for the request, or
// "". Edge headers come first, then an exact region in the language
// headers, then the IP lookup. An Indonesian-only language preference
// implies ID as a last resort.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range edgeCountryHeaders {
		if code := countryCode(r.Header.Get(key)); code != "" {
			return code
		}
	}
	for _, key := range []string{"X-Locale", "Accept-Language"} {
		if region := localeRegion(r.Header.Get(key)); region != "" {
			return region
		}
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if code, err := lookup(ip); err == nil {
				if code = countryCode(code); code != "" {
					return code
				}
			}
		}
	}
	locale := strings.TrimSpace(r.Header.Get("X-Locale"))
	if locale != "" && normalizeLocale(locale) == LocaleIndonesian {
		return "ID"
	}
	if locale == "" && parseAcceptLanguage(r.Header.Get("Accept-Language")) == LocaleIndonesian {
		return "ID"
	}
	return ""
}

// countryCode validates a two-letter country code. Unknown ("XX") and Tor
// ("T1") markers from edge proxies are dropped.
func countryCode(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if len(v) != 2 || v == "XX" {
		return ""
	}
	region, err := language.ParseRegion(v)
	if err != nil || !region.IsCountry() {
		return ""
	}
	return region.String()
}

func localeRegion(header string) string {
	for _, part := range strings.Split(header, ",") {
		token, _, _ := strings.Cut(part, ";")
		token = strings.TrimSpace(token)
		if token == "" || token == "*" {
			continue
		}
		tag, err := language.Parse(token)
		if err != nil {
			continue
		}
		if region, conf := tag.Region(); conf == language.Exact {
			return region.String()
		}
	}
	return ""
}

// ClientIP returns the first valid X-Forwarded-For entry, else the host of
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
