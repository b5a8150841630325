package share

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// FilenamePrefix starts every downloaded file name.
const FilenamePrefix = "bethegolf-playing-style-"

// emptySlug stands in for a persona name with no usable characters.
const emptySlug = "player"

var (
	spaceRun = regexp.MustCompile(`\s+`)
	notSlug  = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slug lower-cases name, turns whitespace runs into hyphens and drops
// anything outside [a-z0-9-].
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = spaceRun.ReplaceAllString(s, "-")
	return notSlug.ReplaceAllString(s, "")
}

// Filename returns the download name for a persona, e.g.
// "bethegolf-playing-style-the-grinder.png".
func Filename(personaName, ext string) string {
	slug := Slug(personaName)
	if slug == "" {
		slug = emptySlug
	}
	if ext == "" {
		ext = FormatPNG.Ext()
	}
	return FilenamePrefix + slug + "." + strings.TrimPrefix(ext, ".")
}

// DownloadImage decodes dataURL and writes the image bytes to w.
func DownloadImage(w io.Writer, dataURL string) error {
	data, _, err := DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}
