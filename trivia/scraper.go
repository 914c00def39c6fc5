package trivia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const minRowCells = 12 // episode + summary + five rounds of (date, time)

// Scraper fetches the schedule page and parses its first table.
type Scraper struct {
	PageURL      string
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64

	client *http.Client
}

func NewScraper(pageURL string) *Scraper {
	return &Scraper{
		PageURL:      strings.TrimSpace(pageURL),
		Timeout:      20 * time.Second,
		UserAgent:    "czj-bot/1.0 (+https://github.com/ray319129/czj)",
		MaxBodyBytes: 2 * 1024 * 1024,
	}
}

func (s *Scraper) Fetch(ctx context.Context) (*Table, error) {
	if s == nil || s.PageURL == "" {
		return nil, fmt.Errorf("%w: no page url configured", ErrUnavailable)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := s.client
	if client == nil {
		client = &http.Client{Timeout: s.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("trivia: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrUnavailable, s.PageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrUnavailable, s.PageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.PageURL, err)
	}

	records, err := parseScheduleHTML(body)
	if err != nil {
		return nil, err
	}
	return NewTable(records), nil
}

// parseScheduleHTML extracts rows from the first <table> in the document.
// The header row is skipped; rows with fewer than minRowCells cells or an
// empty summary are ignored.
func parseScheduleHTML(body []byte) ([]Record, error) {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrUnavailable, err)
	}

	table := findFirst(root, "table")
	if table == nil {
		return nil, fmt.Errorf("%w: no table in page", ErrUnavailable)
	}

	var records []Record
	rows := findAll(table, "tr")
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cells := findAll(row, "td")
		if len(cells) < minRowCells {
			continue
		}
		texts := make([]string, len(cells))
		for j, c := range cells {
			texts[j] = strings.TrimSpace(textContent(c))
		}
		summary := texts[1]
		if summary == "" {
			continue
		}
		rec := Record{Summary: summary, Episode: texts[0]}
		for r := 0; r < RoundCount; r++ {
			rec.Rounds[r] = strings.TrimSpace(texts[2+2*r] + " " + texts[3+2*r])
		}
		records = append(records, rec)
	}
	return records, nil
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
