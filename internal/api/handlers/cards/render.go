package cards

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
)

var cardTemplate = template.Must(template.New("card").Parse(
	`<div class="link-card">
<a class="link-card__link" href="{{.URL}}" target="_blank" rel="noopener noreferrer nofollow">
{{- if .Image}}
<img class="link-card__image" src="{{.Image}}" alt="{{.Title}}" loading="lazy">
{{- end}}
<span class="link-card__title">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</span>
{{- if .Description}}
<span class="link-card__description">{{.Description}}</span>
{{- end}}
</a>
</div>
`))

// HandleRender resolves a card and returns it as an HTML fragment
// GET /cards/render?url=...
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	card, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, card); err != nil {
		slog.Error("[CARDS-API] failed to render card", "url", card.URL, "error", err)
		http.Error(w, "failed to render card", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("[CARDS-API] failed to write card response", "url", card.URL, "error", err)
	}
}
