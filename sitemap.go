package sitecms

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/store"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapSections are the listing pages every language has.
var sitemapSections = []string{"blog", "events", "gallery"}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Feeds.Posts(c.Request().Context())
	if err != nil {
		return storeError(err, "Blog post")
	}
	return a.renderSitemap(c, posts)
}

func (a *App) renderSitemap(c echo.Context, posts []store.BlogPost) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "fa")},
	}
	for _, s := range sitemapSections {
		urls = append(urls,
			sitemapURL{Loc: BuildURL(base, s)},
			sitemapURL{Loc: BuildURL(base, "fa", s)},
		)
	}
	for _, p := range posts {
		lastMod := p.UpdatedAt.Format("2006-01-02")
		urls = append(urls,
			sitemapURL{Loc: postURL(base, "en", p), LastMod: lastMod},
			sitemapURL{Loc: postURL(base, "fa", p), LastMod: lastMod},
		)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
