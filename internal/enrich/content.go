package enrich

import (
	"context"
	"net/http"
	"strings"
	"time"

	"updates_notifier/internal/logger"

	"golang.org/x/net/html"
)

// Fetcher загружает страницу публикации и извлекает основной текстовый блок.
type Fetcher struct {
	client *http.Client
	log    *logger.Entry
}

// NewFetcher создаёт Fetcher с таймаутом на запрос.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger.WithComponent("fetcher"),
	}
}

// Content возвращает текст основного блока страницы (<main>, затем
// <article>). Недоступная страница или отсутствие основного блока — это
// пустая строка, а не ошибка: вызывающий доставляет уведомление без резюме.
func (f *Fetcher) Content(ctx context.Context, rawURL string) string {
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debugf("Failed to fetch %s: %v", rawURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Debugf("Unexpected status %d for %s", resp.StatusCode, rawURL)
		return ""
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return ""
	}

	main := findElement(doc, "main")
	if main == nil {
		main = findElement(doc, "article")
	}
	if main == nil {
		return ""
	}
	return strings.TrimSpace(collectText(main))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}
