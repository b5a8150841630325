// Package share turns a completed assessment into a shareable image and
// offers the copy, download, native share and social link channels for it.
package share

import (
	"math"
	"strings"

	"github.com/okian/bethegolf/internal/domain/model"
)

// Brand is printed at the bottom of every card.
const Brand = "bethegolf.com"

// Highlight is one labelled line under the persona.
type Highlight struct {
	Label string
	Text  string
}

// Card is the content of the off-screen result summary.
type Card struct {
	Heading     string
	PersonaName string
	Tagline     string
	Highlights  []Highlight
	Example     string
	Tips        []string
	Brand       string
}

// maxCardTips caps how many tips fit on the card.
const maxCardTips = 2

// BuildCard extracts the card content from a public result.
func BuildCard(res model.PublicResult) Card {
	c := Card{Heading: "Your playing style", Brand: Brand}
	if name := strings.TrimSpace(res.Assessment.DisplayName()); name != "" {
		c.Heading = name + "'s playing style"
	}

	if p := res.Assessment.Persona; p != nil {
		c.PersonaName = p.Name
		c.Tagline = p.Tagline
		for _, h := range []Highlight{
			{Label: "Watch out", Text: p.Watchout},
			{Label: "Reset", Text: p.Reset},
			{Label: "Truth", Text: p.Truth},
		} {
			if strings.TrimSpace(h.Text) != "" {
				c.Highlights = append(c.Highlights, h)
			}
		}
		if p.Example.Name != "" {
			c.Example = "Plays like " + p.Example.Name
		}
	}

	for _, list := range [][]string{res.Tips.Practice.Dos, res.Tips.Play.Dos} {
		if len(list) > 0 && len(c.Tips) < maxCardTips {
			c.Tips = append(c.Tips, list[0])
		}
	}
	return c
}

// TextStyle selects the font role of a line.
type TextStyle int

// Text roles, top to bottom on the card.
const (
	StyleHeading TextStyle = iota
	StyleTitle
	StyleTagline
	StyleLabel
	StyleBody
	StyleBrand
)

// Measurer reports text metrics in logical pixels.
type Measurer interface {
	Width(style TextStyle, s string) float64
	LineHeight(style TextStyle) float64
}

// Line is one placed line of text. Top is the top of its line box.
type Line struct {
	Style TextStyle
	Text  string
	X     float64
	Top   float64
	Width float64
}

// Box is the laid-out card in logical pixels.
type Box struct {
	Aspect AspectRatio
	Width  float64
	Height float64
	Lines  []Line
}

// Pixels returns the raster size at scale.
func (b Box) Pixels(scale float64) (int, int) {
	return int(math.Ceil(b.Width * scale)), int(math.Ceil(b.Height * scale))
}

// CardPadding surrounds the card content on every side.
const CardPadding = 48

// WrapWidth is the widest a text line may grow for the aspect.
func WrapWidth(a AspectRatio) float64 {
	switch a {
	case AspectVertical:
		return 340
	case AspectLandscape:
		return 620
	default:
		return 440
	}
}

type block struct {
	style TextStyle
	text  string
	gap   float64
}

func (c Card) blocks() []block {
	bs := []block{
		{style: StyleHeading, text: c.Heading},
		{style: StyleTitle, text: c.PersonaName, gap: 12},
	}
	if c.Tagline != "" {
		bs = append(bs, block{style: StyleTagline, text: c.Tagline, gap: 8})
	}
	for i, h := range c.Highlights {
		gap := 10.0
		if i == 0 {
			gap = 28
		}
		bs = append(bs,
			block{style: StyleLabel, text: strings.ToUpper(h.Label), gap: gap},
			block{style: StyleBody, text: h.Text, gap: 2},
		)
	}
	if c.Example != "" {
		bs = append(bs, block{style: StyleTagline, text: c.Example, gap: 24})
	}
	for i, t := range c.Tips {
		gap := 6.0
		if i == 0 {
			bs = append(bs, block{style: StyleLabel, text: "TRY THIS", gap: 24})
		}
		bs = append(bs, block{style: StyleBody, text: "• " + t, gap: gap})
	}
	bs = append(bs, block{style: StyleBrand, text: c.Brand, gap: 32})
	return bs
}

// Layout wraps and stacks the card's text, then grows the shorter side so
// the box matches the aspect ratio. All sizes come from m.
func Layout(c Card, aspect AspectRatio, m Measurer) Box {
	limit := WrapWidth(aspect)

	var (
		lines    []Line
		contentW float64
		y        float64
	)
	for _, b := range c.blocks() {
		if strings.TrimSpace(b.text) == "" {
			continue
		}
		y += b.gap
		lh := m.LineHeight(b.style)
		for _, text := range wrap(b.text, limit, func(s string) float64 { return m.Width(b.style, s) }) {
			w := m.Width(b.style, text)
			contentW = math.Max(contentW, w)
			lines = append(lines, Line{Style: b.style, Text: text, Top: y, Width: w})
			y += lh
		}
	}
	contentH := y

	w := contentW + 2*CardPadding
	h := contentH + 2*CardPadding
	if r := aspect.Ratio(); w/h < r {
		w = h * r
	} else {
		h = w / r
	}

	offX := (w - contentW) / 2
	offY := (h - contentH) / 2
	for i := range lines {
		lines[i].X = offX + (contentW-lines[i].Width)/2
		lines[i].Top += offY
	}
	return Box{Aspect: aspect, Width: w, Height: h, Lines: lines}
}

// wrap breaks s into lines no wider than limit. A single word wider than
// limit gets a line of its own.
func wrap(s string, limit float64, width func(string) float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var (
		out []string
		cur = words[0]
	)
	for _, word := range words[1:] {
		next := cur + " " + word
		if width(next) <= limit {
			cur = next
			continue
		}
		out = append(out, cur)
		cur = word
	}
	return append(out, cur)
}
