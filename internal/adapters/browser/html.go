package browser

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/okian/bethegolf/internal/domain/share"
)

//go:embed templates/card.html
var templateFS embed.FS

var cardTemplate = template.Must(template.ParseFS(templateFS, "templates/card.html"))

type cardView struct {
	Card     share.Card
	Padding  float64
	MaxWidth float64
}

// RenderHTML returns the standalone page the browser screenshots. The card
// element has id "card" and sizes itself to its content.
func RenderHTML(card share.Card, aspect share.AspectRatio) (string, error) {
	var buf bytes.Buffer
	err := cardTemplate.Execute(&buf, cardView{
		Card:     card,
		Padding:  share.CardPadding,
		MaxWidth: share.WrapWidth(aspect) + 2*share.CardPadding,
	})
	if err != nil {
		return "", fmt.Errorf("render card html: %w", err)
	}
	return buf.String(), nil
}
