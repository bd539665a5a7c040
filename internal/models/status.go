// internal/models/status.go
package models

import "strings"

// Канонічні статуси звернення
const (
	ReportStatusSubmitted  = "submitted"
	ReportStatusInReview   = "in_review"
	ReportStatusAssigned   = "assigned"
	ReportStatusInProgress = "in_progress"
	ReportStatusResolved   = "resolved"
	ReportStatusClosed     = "closed"
	ReportStatusPending    = "pending"
)

// Синоніми, які приймає API, і їх канонічні відповідники
var statusSynonyms = map[string]string{
	"in-progress": ReportStatusInProgress,
	"inprogress":  ReportStatusInProgress,
	"complete":    ReportStatusResolved,
	"completed":   ReportStatusResolved,
	"canceled":    ReportStatusClosed,
	"cancelled":   ReportStatusClosed,
}

var canonicalStatuses = map[string]bool{
	ReportStatusSubmitted:  true,
	ReportStatusInReview:   true,
	ReportStatusAssigned:   true,
	ReportStatusInProgress: true,
	ReportStatusResolved:   true,
	ReportStatusClosed:     true,
	ReportStatusPending:    true,
}

// NormalizeStatus зводить синонім до канонічного статусу.
// Другий результат false, якщо токен не входить у допустимий набір.
func NormalizeStatus(raw string) (string, bool) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := statusSynonyms[token]; ok {
		return canonical, true
	}
	if canonicalStatuses[token] {
		return token, true
	}
	return "", false
}

// IsAcceptedStatus перевіряє, чи приймається токен на вході API.
func IsAcceptedStatus(raw string) bool {
	_, ok := NormalizeStatus(raw)
	return ok
}

// AcceptedStatuses повертає всі значення, які приймаються на вході (канонічні і синоніми).
func AcceptedStatuses() []string {
	return []string{
		ReportStatusSubmitted, ReportStatusInReview, ReportStatusAssigned,
		ReportStatusInProgress, "in-progress", "inprogress",
		ReportStatusResolved, "completed", "complete",
		ReportStatusClosed, "cancelled", "canceled",
		ReportStatusPending,
	}
}

// StatusSynonyms повертає копію таблиці синонімів (для міграції старих документів).
func StatusSynonyms() map[string]string {
	out := make(map[string]string, len(statusSynonyms))
	for k, v := range statusSynonyms {
		out[k] = v
	}
	return out
}

// IsFinalStatus - звернення вирішене або закрите.
func IsFinalStatus(status string) bool {
	return status == ReportStatusResolved || status == ReportStatusClosed
}
