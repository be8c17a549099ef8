package web

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/ratemydpe/internal/model"
)

// feedItemLimit はRSSフィードに含める最新レビュー数。
const feedItemLimit = 20

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
	Category    string  `xml:"category,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// ReviewsFeed は最新レビューのRSS 2.0フィードを返す。
// GET /feeds/reviews.xml
func (h *Handler) ReviewsFeed(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListRecent(r.Context(), feedItemLimit)
	if err != nil {
		h.serverError(w, err)
		return
	}

	feed := buildFeed(strings.TrimRight(h.config.BaseURL, "/"), reviews)

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		h.logger.Error("failed to encode feed", slog.String("error", err.Error()))
	}
}

func buildFeed(baseURL string, reviews []model.ReviewWithDPE) rssFeed {
	channel := rssChannel{
		Title:       siteName + " - Recent Reviews",
		Link:        baseURL + "/",
		Description: "The latest checkride reviews of Designated Pilot Examiners.",
		Language:    "en-us",
		Items:       make([]rssItem, 0, len(reviews)),
	}
	if len(reviews) > 0 {
		channel.LastBuildDate = reviews[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}

	for _, rv := range reviews {
		name := strings.TrimSpace(rv.DPEFirstName + " " + rv.DPELastName)
		channel.Items = append(channel.Items, rssItem{
			Title:       fmt.Sprintf("%s rated %d/5 by %s", name, rv.OverallRating, rv.UserName),
			Link:        fmt.Sprintf("%s/dpes/%s#review-%s", baseURL, rv.DPEID, rv.ID),
			Description: rv.Content,
			GUID:        rssGUID{Value: "review-" + rv.ID},
			PubDate:     rv.CreatedAt.UTC().Format(time.RFC1123Z),
			Category:    checkrideCategory(rv.CheckrideType),
		})
	}

	return rssFeed{Version: "2.0", Channel: channel}
}

func checkrideCategory(code string) string {
	if code == "" {
		return ""
	}
	return checkrideLabel(code)
}
