package crawler

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"updates_notifier/internal/models"
)

// FetchFeed загружает XML-ленту по url, декодирует и возвращает структуру
// models.RSS.
func FetchFeed(ctx context.Context, url string) (*models.RSS, error) {
	client := http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rss models.RSS
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}
	return &rss, nil
}

// parsePubDate разбирает дату публикации из ленты. Ленты отдают даты в
// вариациях RFC1123.
func parsePubDate(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC1123Z, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC1123, value)
}
