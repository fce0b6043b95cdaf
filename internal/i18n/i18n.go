// Package i18n provides internationalization support for the sortline service.
// It handles translation of user-facing messages and error messages.
package i18n

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale is the default language locale (English).
	DefaultLocale = "en"
	// AcceptLanguageHeader is the HTTP header name for language preference.
	AcceptLanguageHeader = "Accept-Language"
)

var (
	// defaultTranslator is the singleton translator instance.
	defaultTranslator *Translator
	translatorOnce    sync.Once
)

// Translator handles message translation for different locales.
type Translator struct {
	messages map[string]map[string]string
}

// NewTranslator creates a new translator with the default messages.
func NewTranslator() *Translator {
	return &Translator{
		messages: getDefaultMessages(),
	}
}

// GetTranslator returns the default singleton translator instance.
func GetTranslator() *Translator {
	translatorOnce.Do(func() {
		defaultTranslator = NewTranslator()
	})
	return defaultTranslator
}

// Translate returns the translated message for the given key and locale.
// Falls back to DefaultLocale if the locale is not found.
func (t *Translator) Translate(key, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}

	localeMessages, ok := t.messages[locale]
	if !ok {
		localeMessages = t.messages[DefaultLocale]
	}

	msg, ok := localeMessages[key]
	if !ok {
		// Fallback to default locale
		if defaultMessages := t.messages[DefaultLocale]; defaultMessages != nil {
			if fallbackMsg, exists := defaultMessages[key]; exists {
				return fallbackMsg
			}
		}
		return key
	}

	return msg
}

// GetLocale extracts the locale from the gin context.
// Checks Accept-Language header and falls back to DefaultLocale.
func GetLocale(c *gin.Context) string {
	acceptLang := c.GetHeader(AcceptLanguageHeader)
	if acceptLang == "" {
		return DefaultLocale
	}

	// Parse Accept-Language header (e.g., "en-US,en;q=0.9,pt;q=0.8")
	parts := strings.Split(acceptLang, ",")
	if len(parts) > 0 {
		lang := strings.TrimSpace(strings.Split(parts[0], ";")[0])
		// Extract base language (e.g., "en" from "en-US")
		if idx := strings.Index(lang, "-"); idx > 0 {
			lang = lang[:idx]
		}
		// Normalize to lowercase
		lang = strings.ToLower(lang)
		// Validate it's a supported locale
		if _, ok := getDefaultMessages()[lang]; ok {
			return lang
		}
	}

	return DefaultLocale
}

// getDefaultMessages returns the default message translations.
func getDefaultMessages() map[string]map[string]string {
	return map[string]map[string]string{
		"en": {
			// Error messages
			"error.invalid_request":      "Invalid request",
			"error.invalid_request_body": "Invalid request body",
			"error.internal_error":       "An unexpected error occurred",
			"error.unauthorized":         "Unauthorized",
			"error.api_key_required":     "API key is required",
			"error.invalid_api_key":      "Invalid API key",
			"error.forbidden":            "Forbidden",
			"error.not_found":            "Not found",
			"error.rate_limit_exceeded":  "Too many requests, please try again later",
			"error.conflict":             "Conflict",
			"error.timeout":              "Request timed out",
			"error.no_active_session":    "No active scan session, open a session first",
			"error.unknown_barcode":      "Barcode not found in this job",
			"error.extra_item":           "All quantities for this barcode are already fulfilled",
			"error.check_conflict":       "Another check session is already running for this box",
			"error.box_empty":            "This box has no expected items to verify",
			"error.job_not_found":        "Job not found",
			"error.check_not_found":      "Check session not found or already closed",
			"error.worker_limit":         "This job already has the maximum number of workers",
			"error.box_out_of_range":     "Box number is outside the job's range",

			// Success messages
			"success.scan_recorded":  "Scan recorded",
			"success.item_put_aside": "Customer has no box yet, item put aside",
		},
		"pt": {
			// Error messages
			"error.invalid_request":      "Requisição inválida",
			"error.invalid_request_body": "Corpo da requisição inválido",
			"error.internal_error":       "Ocorreu um erro inesperado",
			"error.unauthorized":         "Não autorizado",
			"error.api_key_required":     "Chave de API é obrigatória",
			"error.invalid_api_key":      "Chave de API inválida",
			"error.forbidden":            "Proibido",
			"error.not_found":            "Não encontrado",
			"error.rate_limit_exceeded":  "Muitas requisições, tente novamente mais tarde",
			"error.conflict":             "Conflito",
			"error.timeout":              "Tempo de requisição esgotado",
			"error.no_active_session":    "Nenhuma sessão de leitura ativa, abra uma sessão primeiro",
			"error.unknown_barcode":      "Código de barras não encontrado neste trabalho",
			"error.extra_item":           "Todas as quantidades deste código de barras já foram atendidas",
			"error.check_conflict":       "Outra sessão de verificação já está ativa para esta caixa",
			"error.box_empty":            "Esta caixa não tem itens esperados para verificar",
			"error.job_not_found":        "Trabalho não encontrado",
			"error.check_not_found":      "Sessão de verificação não encontrada ou já encerrada",
			"error.worker_limit":         "Este trabalho já tem o número máximo de operadores",
			"error.box_out_of_range":     "Número de caixa fora do intervalo do trabalho",

			// Success messages
			"success.scan_recorded":  "Leitura registrada",
			"success.item_put_aside": "Cliente ainda não tem caixa, item reservado",
		},
		"nl": {
			// Error messages
			"error.invalid_request":      "Ongeldig verzoek",
			"error.invalid_request_body": "Ongeldige aanvraag body",
			"error.internal_error":       "Er is een onverwachte fout opgetreden",
			"error.unauthorized":         "Niet geautoriseerd",
			"error.api_key_required":     "API-sleutel is vereist",
			"error.invalid_api_key":      "Ongeldige API-sleutel",
			"error.forbidden":            "Verboden",
			"error.not_found":            "Niet gevonden",
			"error.rate_limit_exceeded":  "Te veel verzoeken, probeer het later opnieuw",
			"error.conflict":             "Conflict",
			"error.timeout":              "Verzoek verlopen",
			"error.no_active_session":    "Geen actieve scansessie, open eerst een sessie",
			"error.unknown_barcode":      "Barcode niet gevonden in deze opdracht",
			"error.extra_item":           "Alle aantallen voor deze barcode zijn al vervuld",
			"error.check_conflict":       "Er loopt al een controlesessie voor deze doos",
			"error.box_empty":            "Deze doos heeft geen verwachte artikelen om te controleren",
			"error.job_not_found":        "Opdracht niet gevonden",
			"error.check_not_found":      "Controlesessie niet gevonden of al gesloten",
			"error.worker_limit":         "Deze opdracht heeft al het maximale aantal medewerkers",
			"error.box_out_of_range":     "Doosnummer valt buiten het bereik van de opdracht",

			// Success messages
			"success.scan_recorded":  "Scan geregistreerd",
			"success.item_put_aside": "Klant heeft nog geen doos, artikel apart gelegd",
		},
	}
}
