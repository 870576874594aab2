package usecase

import (
	"errors"
	"strings"

	"pals-portal/internal/domain/ports/adapter"
)

// UserMessage picks the text shown to the citizen for a failed backend
// action: the backend's own message when it sent one, else fallback.
func UserMessage(err error, fallback string) string {
	var be *adapter.BackendError
	if errors.As(err, &be) && strings.TrimSpace(be.Message) != "" {
		return be.Message
	}
	return fallback
}
