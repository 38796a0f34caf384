// Package theme resolves and persists the console's light/dark preference.
// The preference lives in a cookie; without one the browser's
// Sec-CH-Prefers-Color-Scheme hint decides, then the configured default.
package theme

import (
	"net/http"
	"strings"
	"time"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

const (
	CookieName           = "hrms_theme"
	TransitionCookieName = "hrms_theme_transition"
	PreferenceHint       = "Sec-CH-Prefers-Color-Scheme"

	// TransitionDuration is how long the theme-transitioning class stays on
	// the root element after a toggle.
	TransitionDuration = 600 * time.Millisecond
)

func Parse(raw string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	default:
		return "", false
	}
}

func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func (t Theme) IsDark() bool {
	return t == Dark
}

// Store reads and writes the preference on a request/response pair.
type Store struct {
	fallback Theme
	maxAge   int
}

func NewStore(fallback Theme) *Store {
	if _, ok := Parse(string(fallback)); !ok {
		fallback = Light
	}
	return &Store{fallback: fallback, maxAge: 365 * 24 * 60 * 60}
}

func (s *Store) Resolve(r *http.Request) Theme {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if t, ok := Parse(cookie.Value); ok {
			return t
		}
	}
	if t, ok := Parse(r.Header.Get(PreferenceHint)); ok {
		return t
	}
	return s.fallback
}

// Toggle flips the resolved theme, persists it and flags the next render to
// animate the switch.
func (s *Store) Toggle(w http.ResponseWriter, r *http.Request) Theme {
	next := s.Resolve(r).Opposite()
	s.set(w, r, next)
	return next
}

func (s *Store) Set(w http.ResponseWriter, r *http.Request, t Theme) {
	s.set(w, r, t)
}

// TakeTransition reports whether a toggle is waiting to be animated and
// clears the flag so only one render animates.
func (s *Store) TakeTransition(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(TransitionCookieName)
	if err != nil || cookie.Value != "1" {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TransitionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// Advertise asks the browser to send its color-scheme hint on later requests.
func Advertise(w http.ResponseWriter) {
	w.Header().Set("Accept-CH", PreferenceHint)
	w.Header().Add("Vary", PreferenceHint)
}

func (s *Store) set(w http.ResponseWriter, r *http.Request, t Theme) {
	secure := r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(t),
		Path:     "/",
		MaxAge:   s.maxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     TransitionCookieName,
		Value:    "1",
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}
