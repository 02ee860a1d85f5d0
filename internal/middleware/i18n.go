package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// Descriptions are generated in English or Bahasa Indonesia. English is
// first so it is what the matcher falls back to.
var localeMatcher = language.NewMatcher([]language.Tag{language.English, language.Indonesian})

// Edge proxies that already geolocated the caller.
var countryHeaders = []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// Where a negotiated locale came from.
const (
	SourceHeader   = "x-locale"
	SourceAccept   = "accept-language"
	SourceCountry  = "country"
	SourceFallback = "fallback"
)

// Negotiated is the outcome of locale negotiation for one request.
type Negotiated struct {
	Locale  string
	Country string
	Source  string
}

// I18N stores the negotiated locale and country on the request context and
// advertises the locale in Content-Language. A JWT locale claim set later by
// AuthJWT takes precedence for generation.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := Negotiate(r, defaultLocale, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, n.Locale)
			if n.Country != "" {
				ctx = context.WithValue(ctx, CountryKey, n.Country)
			}
			w.Header().Add("Vary", "Accept-Language")
			w.Header().Set("Content-Language", n.Locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Negotiate picks the locale from X-Locale, then Accept-Language, then the
// caller's country (ID maps to id), then fallback. The geoip lookup only runs
// when the headers leave both locale and country open.
func Negotiate(r *http.Request, fallback string, lookup CountryLookup) Negotiated {
	n := Negotiated{Country: countryHint(r)}
	if locale, ok := matchLocale(r.Header.Get("X-Locale")); ok {
		n.Locale, n.Source = locale, SourceHeader
	} else if locale, ok := matchAcceptLanguage(r.Header.Get("Accept-Language")); ok {
		n.Locale, n.Source = locale, SourceAccept
	}
	if n.Locale != "" && n.Country != "" {
		return n
	}
	if n.Country == "" && lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil {
				n.Country = strings.ToUpper(strings.TrimSpace(country))
			}
		}
	}
	switch {
	case n.Locale != "":
	case n.Country == "ID":
		n.Locale, n.Source = "id", SourceCountry
	case n.Country != "":
		n.Locale, n.Source = "en", SourceCountry
	default:
		n.Locale, n.Source = normalizeLocale(fallback), SourceFallback
	}
	return n
}

// countryHint reads proxy headers, then the first explicit region in the
// locale headers. Inferred regions are ignored.
func countryHint(r *http.Request) string {
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); len(v) == 2 {
			return strings.ToUpper(v)
		}
	}
	for _, h := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		if region := explicitRegion(h); region != "" {
			return region
		}
	}
	return ""
}

func explicitRegion(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if region, conf := tag.Region(); conf == language.Exact {
			return region.String()
		}
	}
	return ""
}

func matchLocale(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	tag, err := language.Parse(v)
	if err != nil {
		return "", false
	}
	return matchTags(tag)
}

func matchAcceptLanguage(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	return matchTags(tags...)
}

// matchTags reports false when no supported locale is a plausible match, so
// that e.g. "fr" defers to the country instead of forcing English.
func matchTags(tags ...language.Tag) (string, bool) {
	tag, _, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return baseLocale(tag), true
}

func normalizeLocale(locale string) string {
	if l, ok := matchLocale(locale); ok {
		return l
	}
	return "en"
}

func baseLocale(tag language.Tag) string {
	if base, _ := tag.Base(); base.String() == "id" {
		return "id"
	}
	return "en"
}

// ClientIP returns the first valid X-Forwarded-For address, else the peer
// address without its port.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.Unmap().String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}
