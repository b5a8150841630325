// Package play runs the assessment in a terminal: it walks the frames with a
// keyboard-driven view, then exports the share card to disk, the clipboard
// and a social network.
package play

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
)

// Config holds the command line settings of a terminal run.
type Config struct {
	APIBaseURL string        // scoring API base URL
	Locale     string        // locale sent with every call
	Timeout    time.Duration // per-call timeout, zero for none
	FirstName  string
	Gender     string
	Handicap   string // empty when not given

	Aspect string  // square, vertical or landscape
	Scale  float64 // pixel multiplier of the card
	Format string  // png or jpeg
	OutDir string  // where the card is written; empty skips the file

	// ExtraAspects are rendered after Aspect by switching the same card,
	// each into a subdirectory of OutDir named after the aspect.
	ExtraAspects []string

	ShareBaseURL string // result page prefix when the API gives no share link

	NativeShare bool // hand the card to the platform share sheet
	Copy        bool // put the card image on the clipboard
	CopyURL bool   // put the share link on the clipboard
	Open    string // social network whose share intent is opened
}

var (
	errNoGender = errors.New("gender is required")
	errNoAPI    = errors.New("api base url is required")
)

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errNoAPI
	}
	if strings.TrimSpace(c.Gender) == "" {
		return errNoGender
	}
	if _, err := c.Options(); err != nil {
		return err
	}
	for _, a := range c.ExtraAspects {
		if _, err := share.ParseAspectRatio(a); err != nil {
			return err
		}
	}
	if c.Open != "" && !knownNetwork(c.Open) {
		return fmt.Errorf("%w: network %q", share.ErrInvalidOptions, c.Open)
	}
	_, err := c.Demographics()
	return err
}

// Demographics builds the start payload.
func (c *Config) Demographics() (model.Demographics, error) {
	d := model.Demographics{Gender: strings.TrimSpace(c.Gender)}
	if name := strings.TrimSpace(c.FirstName); name != "" {
		d.FirstName = &name
	}
	if s := strings.TrimSpace(c.Handicap); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return d, fmt.Errorf("handicap %q is not a number", s)
		}
		d.Handicap = &v
	}
	return d, nil
}

// Options returns the normalized image options.
func (c *Config) Options() (share.Options, error) {
	return share.Options{
		AspectRatio: share.AspectRatio(c.Aspect),
		Scale:       c.Scale,
		Format:      share.Format(c.Format),
	}.Normalize()
}

func knownNetwork(name string) bool {
	for _, n := range share.Networks() {
		if string(n) == name {
			return true
		}
	}
	return false
}
