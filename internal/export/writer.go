package export

import (
	"fmt"
	"net/http"
)

// WriteDownload sends an export as a file attachment.
func WriteDownload(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(body))
}

// WriteSubscription sends an export as a subscribable feed. No attachment
// disposition: calendar clients poll the URL directly.
func WriteSubscription(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(body))
}
