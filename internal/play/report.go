package play

import (
	"fmt"
	"io"
	"strings"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
)

// PrintReport writes the persona summary and what the export did.
func PrintReport(w io.Writer, res model.PublicResult, rep Report) {
	card := share.BuildCard(res)

	var b strings.Builder
	b.WriteString(mutedStyle.Render(card.Heading))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(card.PersonaName))
	if card.Tagline != "" {
		b.WriteString("\n")
		b.WriteString(card.Tagline)
	}
	for _, h := range card.Highlights {
		fmt.Fprintf(&b, "\n\n%s\n%s", cursorStyle.Render(h.Label), h.Text)
	}
	if card.Example != "" {
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render(card.Example))
	}
	fmt.Fprintln(w, boxStyle.Render(b.String()))

	if rep.File != "" {
		fmt.Fprintf(w, "card saved to %s\n", rep.File)
	}
	for _, f := range rep.Extra {
		fmt.Fprintf(w, "card saved to %s\n", f)
	}
	if rep.Shared {
		fmt.Fprintln(w, "card handed to the share sheet")
	}
	if rep.Copied {
		fmt.Fprintln(w, "card copied to clipboard")
	}
	if rep.CopiedURL {
		fmt.Fprintln(w, "link copied to clipboard")
	}
	if rep.ShareURL != "" {
		fmt.Fprintf(w, "share: %s\n", rep.ShareURL)
	}
	if rep.Opened != "" {
		fmt.Fprintf(w, "opened %s\n", rep.Opened)
	}
	for _, s := range rep.Skipped {
		fmt.Fprintf(w, "%s not available here, skipped\n", s)
	}
}
