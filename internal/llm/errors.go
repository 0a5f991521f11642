package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured wird geliefert, wenn das Backend keine Zugangsdaten hat
	ErrNotConfigured = errors.New("generierungs-backend nicht konfiguriert")

	// ErrImageUnsupported: das Backend kann keine Bilder erzeugen
	ErrImageUnsupported = errors.New("bildgenerierung wird nicht unterstützt")

	// ErrEmptyResponse: das Backend hat keinen Text geliefert
	ErrEmptyResponse = errors.New("leere antwort vom backend")

	// ErrNoPromptTemplate: keine Vorlage für Fach/Aktivität
	ErrNoPromptTemplate = errors.New("keine prompt-vorlage für diese kombination")
)

// CodeSafety markiert eine durch Inhaltsfilter blockierte Antwort
const CodeSafety = "SAFETY"

// APIError ist ein strukturierter Backend-Fehler
type APIError struct {
	Status  int    // HTTP-Status, 0 wenn unbekannt
	Code    string // z.B. RESOURCE_EXHAUSTED, SAFETY
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("backend-fehler (%d %s): %s", e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("backend-fehler (%s): %s", e.Code, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend-fehler (%d): %s", e.Status, e.Message)
	}
	return "backend-fehler: " + e.Message
}

// Category ist die für den Nutzer sichtbare Fehlerklasse
type Category string

const (
	CategoryConfiguration      Category = "configuration_error"
	CategoryBackendUnavailable Category = "backend_unavailable"
	CategorySafetyRejected     Category = "safety_rejected"
	CategoryQuotaExceeded      Category = "quota_exceeded"
	CategoryGenerationFailed   Category = "generation_failed"
)

var categoryMessages = map[Category]string{
	CategoryConfiguration:      "هذا النشاط غير متوفر حاليًا. الرجاء اختيار نشاط آخر.",
	CategoryBackendUnavailable: "خدمة إعداد المحتوى غير متاحة حاليًا. الرجاء المحاولة لاحقًا.",
	CategorySafetyRejected:     "لم نتمكن من إعداد هذا المحتوى. الرجاء المحاولة مرة أخرى.",
	CategoryQuotaExceeded:      "لقد تم الوصول إلى الحد المسموح به من الطلبات. الرجاء الانتظار قليلًا ثم المحاولة مرة أخرى.",
	CategoryGenerationFailed:   "حدث خطأ أثناء إعداد المحتوى. الرجاء المحاولة مرة أخرى.",
}

// Message liefert die lokalisierte, freundliche Fehlermeldung
func (c Category) Message() string {
	if msg, ok := categoryMessages[c]; ok {
		return msg
	}
	return categoryMessages[CategoryGenerationFailed]
}

var (
	safetyMarkers = []string{"safety", "blocked", "prohibited_content"}
	quotaMarkers  = []string{"quota", "rate limit", "resource_exhausted", "too many requests"}
)

// ClassifyError ordnet einen Backend-Fehler einer Kategorie zu. Strukturierte
// APIError-Felder haben Vorrang, danach wird der Fehlertext durchsucht.
func ClassifyError(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotConfigured) {
		return CategoryBackendUnavailable
	}
	if errors.Is(err, ErrNoPromptTemplate) {
		return CategoryConfiguration
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == CodeSafety:
			return CategorySafetyRejected
		case apiErr.Status == 429 || apiErr.Code == "RESOURCE_EXHAUSTED":
			return CategoryQuotaExceeded
		}
	}

	// Kontingent zuerst: Limit-Meldungen sprechen oft von "blocked"
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return CategoryQuotaExceeded
		}
	}
	for _, m := range safetyMarkers {
		if strings.Contains(msg, m) {
			return CategorySafetyRejected
		}
	}
	return CategoryGenerationFailed
}
