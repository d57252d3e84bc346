package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

type toast struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SetToast adds a showToast event to the HX-Trigger response header, keeping
// any event already set there. A short-lived flash cookie carries the same
// toast across non-HTMX redirects.
func SetToast(e *core.RequestEvent, toastType string, message string) {
	t := toast{Message: message, Type: toastType}

	events := map[string]any{}
	if existing := e.Response.Header().Get("HX-Trigger"); existing != "" {
		if err := json.Unmarshal([]byte(existing), &events); err != nil {
			zap.S().Warnf("toast: existing HX-Trigger is not valid JSON, overwriting: %v", err)
			events = map[string]any{}
		}
	}
	events["showToast"] = t

	data, err := json.Marshal(events)
	if err != nil {
		zap.S().Errorf("toast: failed to marshal HX-Trigger JSON: %v", err)
		return
	}
	e.Response.Header().Set("HX-Trigger", string(data))

	if cookieVal, err := json.Marshal(t); err == nil {
		http.SetCookie(e.Response, &http.Cookie{
			Name:     "flash_toast",
			Value:    url.QueryEscape(string(cookieVal)),
			Path:     "/",
			MaxAge:   10,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ErrorToast sets an error toast and tells HTMX not to swap the response
// body, then writes message as plain text.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.String(statusCode, message)
}

// apiError is ErrorToast for JSON endpoints: the body is {"error": message}.
func apiError(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.JSON(statusCode, map[string]string{"error": message})
}

// isHTMX reports whether the request was sent by HTMX.
func isHTMX(e *core.RequestEvent) bool {
	return e.Request.Header.Get("HX-Request") == "true"
}
