package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestI18NNegotiation(t *testing.T) {
	tests := []struct {
		name        string
		headers     map[string]string
		fallback    string
		lookup      CountryLookup
		wantLocale  string
		wantCountry string
	}{
		{
			name:        "explicit locale wins over country",
			headers:     map[string]string{"X-Locale": "ID", "X-Country-Code": "us"},
			wantLocale:  "id",
			wantCountry: "US",
		},
		{
			name:        "accept-language region becomes the country",
			headers:     map[string]string{"Accept-Language": "en-GB,en;q=0.9"},
			wantLocale:  "en",
			wantCountry: "GB",
		},
		{
			name:        "indonesian browser",
			headers:     map[string]string{"Accept-Language": "id-ID,en;q=0.8"},
			wantLocale:  "id",
			wantCountry: "ID",
		},
		{
			name:        "unsupported locale falls through to the country hint",
			headers:     map[string]string{"X-Locale": "fr", "CF-IPCountry": "id"},
			wantLocale:  "id",
			wantCountry: "ID",
		},
		{
			name: "geoip lookup as last resort",
			lookup: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					return "", errors.New("unexpected ip " + ip)
				}
				return "my", nil
			},
			wantLocale:  "en",
			wantCountry: "MY",
		},
		{
			name:       "lookup failure uses the configured fallback",
			fallback:   "id",
			lookup:     func(string) (string, error) { return "", errors.New("no db") },
			wantLocale: "id",
		},
		{
			name:       "nothing known",
			wantLocale: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotLocale, gotCountry string
			h := I18N(tc.fallback, tc.lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotLocale = LocaleFromContext(r.Context())
				gotCountry = CountryFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if gotLocale != tc.wantLocale || gotCountry != tc.wantCountry {
				t.Fatalf("locale/country = %q/%q, want %q/%q", gotLocale, gotCountry, tc.wantLocale, tc.wantCountry)
			}
			if rec.Header().Get("Content-Language") != tc.wantLocale {
				t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
			}
		})
	}
}

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"", "", false},
		{"fr-FR", "", false},
		{"id", "id", true},
		{"fr;q=0.9,id;q=0.5", "id", true},
		{"en-AU", "en", true},
	}
	for _, tc := range tests {
		got, ok := matchLocale(tc.raw)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("matchLocale(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP with proxy = %q", got)
	}
	if got := ClientIP(nil); got != "" {
		t.Fatalf("ClientIP(nil) = %q", got)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "en" {
		t.Fatalf("LocaleFromContext() = %q, want en", got)
	}
}
