package views

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render page", "path", r.URL.Path, "error", err)
		return err
	}
	return nil
}
