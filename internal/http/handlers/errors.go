package handlers

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"logomotion/internal/domain"
	"logomotion/internal/middleware"
	"logomotion/internal/session"
)

const (
	codeBadRequest         = "bad_request"
	codeCredentialRequired = "credential_required"
	codeCredentialExpired  = "credential_expired"
	codeInvalidInput       = "invalid_input"
	codeBusy               = "busy"
	codeNoLogo             = "no_logo"
	codeNotFound           = "not_found"
	codeCancelled          = "cancelled"
	codeTimeout            = "timeout"
	codeGenerationFailed   = "generation_failed"
	codeInternal           = "internal"
)

var messages = map[string][2]string{
	codeBadRequest:         {"The request could not be read.", "Permintaan tidak dapat dibaca."},
	codeCredentialRequired: {"Select a paid Gemini API key to continue.", "Pilih kunci API Gemini berbayar untuk melanjutkan."},
	codeCredentialExpired:  {"The API key was rejected. Select a key again.", "Kunci API ditolak. Pilih kunci lagi."},
	codeInvalidInput:       {"Check the description and options and try again.", "Periksa deskripsi dan pilihan lalu coba lagi."},
	codeBusy:               {"Another generation is still running.", "Pembuatan lain masih berjalan."},
	codeNoLogo:             {"Generate a logo first.", "Buat logo terlebih dahulu."},
	codeNotFound:           {"Nothing was found here.", "Tidak ada yang ditemukan."},
	codeCancelled:          {"The operation was cancelled.", "Operasi dibatalkan."},
	codeTimeout:            {"Video generation took too long.", "Pembuatan video memakan waktu terlalu lama."},
	codeGenerationFailed:   {"Generation failed.", "Pembuatan gagal."},
	codeInternal:           {"Something went wrong.", "Terjadi kesalahan."},
}

var catalogue = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range messages {
		_ = b.SetString(language.English, key, text[0])
		_ = b.SetString(language.Indonesian, key, text[1])
	}
	return b
}

// localize returns the message for code in locale, falling back to English.
func localize(locale, code string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(catalogue)).Sprintf(code)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, status, map[string]errorBody{
		"error": {Code: code, Message: localize(locale, code), Detail: detail},
	})
}

// fail writes err with the status of its class. Generation failures carry
// the provider text as detail.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("code", code).Msg("request failed")
	}
	a.error(w, r, status, code, session.Message(err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDownloadFailed):
		return http.StatusBadGateway, codeGenerationFailed
	case errors.Is(err, domain.ErrCredentialExpired):
		return http.StatusUnauthorized, codeCredentialExpired
	case errors.Is(err, domain.ErrNoCredential):
		return http.StatusUnauthorized, codeCredentialRequired
	case errors.Is(err, domain.ErrInvalidPrompt), errors.Is(err, domain.ErrUnsupportedOption):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, domain.ErrOperationInFlight):
		return http.StatusConflict, codeBusy
	case errors.Is(err, domain.ErrNoLogo):
		return http.StatusConflict, codeNoLogo
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCoordinatorClosed):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, context.Canceled):
		return http.StatusConflict, codeCancelled
	case errors.Is(err, domain.ErrJobTimedOut), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	case errors.Is(err, domain.ErrGenerationFailed),
		errors.Is(err, domain.ErrNoImage),
		errors.Is(err, domain.ErrNoVideoURI):
		return http.StatusBadGateway, codeGenerationFailed
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return http.StatusBadGateway, codeGenerationFailed
	}
	return http.StatusInternalServerError, codeInternal
}
