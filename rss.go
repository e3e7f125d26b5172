package sitecms

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/store"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// feedLang returns "fa" or "en" from the lang query parameter.
func feedLang(c echo.Context) string {
	if c.QueryParam("lang") == "fa" {
		return "fa"
	}
	return "en"
}

// postURL is the public page of a post; Farsi pages live under /fa.
func postURL(base, lang string, p store.BlogPost) string {
	if lang == "fa" {
		return BuildURL(base, "fa", "blog", p.ID)
	}
	return BuildURL(base, "blog", p.ID)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Feeds.Posts(c.Request().Context())
	if err != nil {
		return storeError(err, "Blog post")
	}
	return a.renderRSS(c, feedLang(c), posts)
}

func (a *App) renderRSS(c echo.Context, lang string, posts []store.BlogPost) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := postURL(base, lang, p)
		items = append(items, rssItem{
			Title:       p.Title.In(lang),
			Link:        link,
			Description: p.Description.In(lang),
			Category:    p.Category,
			PubDate:     postTime(p).Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	channelLink := BuildURL(base)
	if lang == "fa" {
		channelLink = BuildURL(base, "fa")
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        channelLink,
			Description: a.Config.Description,
			Language:    lang,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
