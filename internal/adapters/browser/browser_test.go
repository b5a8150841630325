package browser_test

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/okian/bethegolf/internal/adapters/browser"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func card() share.Card {
	return share.Card{
		Heading:     "Sam's playing style",
		PersonaName: "The <Grinder>",
		Tagline:     "Fairways and greens.",
		Highlights:  []share.Highlight{{Label: "Watch out", Text: "Getting defensive."}},
		Tips:        []string{"Ladder drills"},
		Brand:       share.Brand,
	}
}

func TestRenderHTML(t *testing.T) {
	Convey("Given a card", t, func() {
		html, err := browser.RenderHTML(card(), share.AspectVertical)
		So(err, ShouldBeNil)

		Convey("Then the page holds an escaped card sized for the aspect", func() {
			So(html, ShouldContainSubstring, `id="card"`)
			So(html, ShouldContainSubstring, "The &lt;Grinder&gt;")
			So(html, ShouldContainSubstring, "max-width: 436px")
			So(html, ShouldContainSubstring, "Try this")
			So(strings.Count(html, `class="label first"`), ShouldEqual, 2)
		})
	})
}

func TestRasterizer(t *testing.T) {
	if os.Getenv("BETHEGOLF_TEST_BROWSER") == "" {
		t.Skip("set BETHEGOLF_TEST_BROWSER=1 to run against headless Chrome")
	}

	Convey("Given headless Chrome", t, func() {
		r := browser.New(browser.WithBin(os.Getenv("BETHEGOLF_BROWSER_BIN")), browser.WithLogger(logger.Nop()))
		defer func() { _ = r.Close() }()

		img, err := share.GenerateImage(context.Background(), r, card(), share.Options{AspectRatio: share.AspectSquare, Scale: 2})
		So(err, ShouldBeNil)

		Convey("Then a square PNG at twice the CSS size comes back", func() {
			decoded, err := png.Decode(bytes.NewReader(img.Blob))
			So(err, ShouldBeNil)
			So(decoded.Bounds().Dx(), ShouldAlmostEqual, decoded.Bounds().Dy(), 2)
			So(img.Width, ShouldAlmostEqual, decoded.Bounds().Dx(), 2)
		})
	})
}
