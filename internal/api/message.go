package api

import (
	"errors"

	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/pkg/model"
)

// ConnectionFailed is shown when the server could not be reached.
const ConnectionFailed = "connection to server failed"

// UserMessage renders err for display: the server's message when it sent
// one, ConnectionFailed for network errors, local validation and guard
// messages as is, and fallback otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	if apiclient.IsNetwork(err) {
		return ConnectionFailed
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, ErrSelfDemotion) || errors.Is(err, ErrSelfDeletion) {
		return err.Error()
	}
	return fallback
}
