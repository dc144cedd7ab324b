// Package whatson fetches the current event catalog from the What's On
// Glasgow events listing. It implements catalog.Source: one Fetch returns
// the full set of events visible on the listing page, normalised into
// models.Event values.
//
// Parsing stays at the listing-page level: title, event URL, venue, date,
// image, and category tags. Detail pages are not crawled.
package whatson

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
)

// Client scrapes the events listing page.
type Client struct {
	listingURL string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new listing client. listingURL is the full events page
// URL; relative links are resolved against its scheme and host.
func NewClient(listingURL string, timeout time.Duration) *Client {
	base := listingURL
	if idx := strings.Index(strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://"), "/"); idx >= 0 {
		// Keep scheme://host only.
		scheme := "https://"
		if strings.HasPrefix(base, "http://") {
			scheme = "http://"
		}
		host := strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
		base = scheme + host[:idx]
	}

	return &Client{
		listingURL: listingURL,
		baseURL:    base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves and parses the events listing page.
func (c *Client) Fetch(ctx context.Context) ([]models.Event, error) {
	body, err := c.fetchPage(ctx, c.listingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events page: %w", err)
	}

	events := c.parseListing(body)
	if len(events) == 0 {
		return nil, fmt.Errorf("no events parsed from listing page")
	}

	logger.Debug("Parsed %d events from listing page", len(events))
	return events, nil
}

// fetchPage performs an HTTP GET with retry and linear backoff.
func (c *Client) fetchPage(ctx context.Context, url string) (string, error) {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return string(data), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

var (
	eventLinkRe = regexp.MustCompile(`<a[^>]+href="(/event/\d+[^"]*)"`)
	headingRe   = regexp.MustCompile(`(?s)<h[34][^>]*>(.*?)</h[34]>`)
	venueLinkRe = regexp.MustCompile(`(?s)<a[^>]+href="/listings/[^"]*"[^>]*>(.*?)</a>`)
	categoryRe  = regexp.MustCompile(`href="/events/category/([a-z0-9-]+)`)
	imageRe     = regexp.MustCompile(`<img[^>]+(?:src|data-src)="([^"]+)"`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)

	// "3rd October 2025", "3 October 2025", optionally the start of a range.
	longDateRe = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+([A-Z][a-z]+)\s+(\d{4})`)
	slashRe    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// parseListing extracts events from the listing page HTML. Each /event/NNN
// link anchors a card; the card's extent runs until the next event link.
func (c *Client) parseListing(page string) []models.Event {
	matches := eventLinkRe.FindAllStringSubmatchIndex(page, -1)

	var events []models.Event
	for i, m := range matches {
		cardStart := m[0]
		cardEnd := len(page)
		if i+1 < len(matches) {
			cardEnd = matches[i+1][0]
		}
		card := page[cardStart:cardEnd]

		event := c.parseCard(card, page[m[2]:m[3]])
		if event == nil {
			continue
		}
		events = append(events, *event)
	}
	return events
}

// parseCard extracts one event from a listing card fragment.
func (c *Client) parseCard(card, href string) *models.Event {
	title := ""
	if hm := headingRe.FindStringSubmatch(card); hm != nil {
		title = cleanText(hm[1])
	}
	if title == "" || strings.EqualFold(title, "READ MORE") {
		return nil
	}

	venue := ""
	if vm := venueLinkRe.FindStringSubmatch(card); vm != nil {
		venue = cleanText(vm[1])
	}
	if venue == "" {
		venue = "Glasgow"
	}

	var imageURL string
	if im := imageRe.FindStringSubmatch(card); im != nil {
		imageURL = absoluteURL(c.baseURL, im[1])
	}

	tags := c.parseCategories(card)
	category := ""
	if len(tags) > 0 {
		category = tags[0]
	}

	event := &models.Event{
		Title:     title,
		StartTime: parseEventDate(cleanText(card)),
		Venue:     venue,
		Category:  category,
		Tags:      tags,
		SourceURL: absoluteURL(c.baseURL, href),
		ImageURL:  imageURL,
	}
	if err := event.Validate(); err != nil {
		logger.Debug("Skipping invalid listing entry %q: %v", title, err)
		return nil
	}
	return event
}

// categoryMap normalises raw category slugs to the site's canonical
// top-level categories, folding common synonyms.
var categoryMap = map[string]string{
	"music":                "music",
	"gigs":                 "music",
	"concerts":             "music",
	"theatre":              "theatre",
	"theater":              "theatre",
	"film":                 "film",
	"cinema":               "film",
	"comedy":               "comedy",
	"tour":                 "tour",
	"tours":                "tour",
	"exhibitions":          "exhibitions",
	"sport":                "sport",
	"sports":               "sport",
	"food-and-drink":       "food & drink",
	"food":                 "food & drink",
	"drink":                "food & drink",
	"family-and-kids":      "family & kids",
	"family":               "family & kids",
	"kids":                 "family & kids",
	"workshops":            "workshops",
	"gaming":               "gaming",
	"arts-and-crafts":      "arts & crafts",
	"active":               "active",
	"nature":               "nature",
	"nights-out":           "nightlife",
	"nightlife":            "nightlife",
	"days-out":             "days out",
	"outdoor":              "outdoor",
	"talks-and-lectures":   "talks & lectures",
	"health-and-wellbeing": "health & wellbeing",
	"community":            "community",
	"festivals":            "festivals",
	"shopping":             "shopping",
	"history":              "history",
	"learning":             "learning",
}

func (c *Client) parseCategories(card string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range categoryRe.FindAllStringSubmatch(card, -1) {
		normalised, ok := categoryMap[strings.ToLower(m[1])]
		if !ok {
			normalised = strings.ToLower(m[1])
		}
		if !seen[normalised] {
			seen[normalised] = true
			tags = append(tags, normalised)
		}
	}
	return tags
}

// parseEventDate finds the first recognisable date in the card text. Listing
// pages carry no start times, so a typical evening start of 19:00 local time
// is assumed; for date ranges the first date is used.
func parseEventDate(text string) *time.Time {
	if m := longDateRe.FindStringSubmatch(text); m != nil {
		parsed, err := time.ParseInLocation("2 January 2006", fmt.Sprintf("%s %s %s", m[1], m[2], m[3]), time.Local)
		if err == nil {
			t := parsed.Add(19 * time.Hour)
			return &t
		}
	}
	if m := slashRe.FindStringSubmatch(text); m != nil {
		parsed, err := time.ParseInLocation("2/1/2006", fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]), time.Local)
		if err == nil {
			t := parsed.Add(19 * time.Hour)
			return &t
		}
	}
	return nil
}

// cleanText strips tags, unescapes entities, and collapses whitespace.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func absoluteURL(base, href string) string {
	switch {
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return base + href
	default:
		return href
	}
}
