package http

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig gobierna los cookies de sesión (access y refresh).
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	SameSite    string
	Secure      bool
}

func ParseSameSite(s string) http.SameSite {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func BuildCookie(name, value, domain, sameSite string, secure bool, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: ParseSameSite(sameSite),
	}
	if strings.TrimSpace(domain) != "" {
		ck.Domain = domain
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func BuildDeletionCookie(name, domain, sameSite string, secure bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: ParseSameSite(sameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if strings.TrimSpace(domain) != "" {
		ck.Domain = domain
	}
	return ck
}

func (c CookieConfig) setPair(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, BuildCookie(c.AccessName, access, c.Domain, c.SameSite, c.Secure, accessTTL))
	http.SetCookie(w, BuildCookie(c.RefreshName, refresh, c.Domain, c.SameSite, c.Secure, refreshTTL))
}

func (c CookieConfig) deletePair(w http.ResponseWriter) {
	http.SetCookie(w, BuildDeletionCookie(c.AccessName, c.Domain, c.SameSite, c.Secure))
	http.SetCookie(w, BuildDeletionCookie(c.RefreshName, c.Domain, c.SameSite, c.Secure))
}
