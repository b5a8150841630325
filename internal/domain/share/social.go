package share

import (
	"fmt"
	"net/url"
	"strings"
)

// Network is a social share target.
type Network string

// Supported networks, in display order.
const (
	NetworkFacebook Network = "facebook"
	NetworkX        Network = "x"
	NetworkLinkedIn Network = "linkedin"
	NetworkWhatsApp Network = "whatsapp"
	NetworkReddit   Network = "reddit"
	NetworkEmail    Network = "email"
)

var networks = []Network{NetworkFacebook, NetworkX, NetworkLinkedIn, NetworkWhatsApp, NetworkReddit, NetworkEmail}

var labels = map[Network]string{
	NetworkFacebook: "Facebook",
	NetworkX:        "X",
	NetworkLinkedIn: "LinkedIn",
	NetworkWhatsApp: "WhatsApp",
	NetworkReddit:   "Reddit",
	NetworkEmail:    "Email",
}

// Networks returns the supported networks in display order.
func Networks() []Network {
	return append([]Network(nil), networks...)
}

// Label is the button text for n.
func (n Network) Label() string { return labels[n] }

// SharePayload is what gets shared: a link and its title and text.
type SharePayload struct {
	URL   string
	Title string
	Text  string
}

// NewPayload builds the share title and text for card around url.
func NewPayload(card Card, url string) SharePayload {
	text := card.PersonaName
	if card.Tagline != "" {
		text = card.PersonaName + ": " + card.Tagline
	}
	return SharePayload{URL: url, Title: card.Heading, Text: text}
}

// SocialLink is a ready-made share intent.
type SocialLink struct {
	Network Network
	Label   string
	URL     string
}

// Link returns the share intent URL for n.
func Link(n Network, p SharePayload) (string, error) {
	q := url.Values{}
	switch n {
	case NetworkFacebook:
		q.Set("u", p.URL)
		return "https://www.facebook.com/sharer/sharer.php?" + q.Encode(), nil
	case NetworkX:
		q.Set("text", p.Text)
		q.Set("url", p.URL)
		return "https://twitter.com/intent/tweet?" + q.Encode(), nil
	case NetworkLinkedIn:
		q.Set("url", p.URL)
		return "https://www.linkedin.com/sharing/share-offsite/?" + q.Encode(), nil
	case NetworkWhatsApp:
		q.Set("text", joinNonEmpty(" ", p.Text, p.URL))
		return "https://wa.me/?" + q.Encode(), nil
	case NetworkReddit:
		q.Set("url", p.URL)
		q.Set("title", p.Title)
		return "https://www.reddit.com/submit?" + q.Encode(), nil
	case NetworkEmail:
		// mailto wants %20 rather than '+'
		body := joinNonEmpty("\n\n", p.Text, p.URL)
		return "mailto:?subject=" + url.PathEscape(p.Title) + "&body=" + url.PathEscape(body), nil
	default:
		return "", fmt.Errorf("%w: network %q", ErrInvalidOptions, n)
	}
}

// Links returns intents for every supported network.
func Links(p SharePayload) []SocialLink {
	out := make([]SocialLink, 0, len(networks))
	for _, n := range networks {
		u, _ := Link(n, p)
		out = append(out, SocialLink{Network: n, Label: n.Label(), URL: u})
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
