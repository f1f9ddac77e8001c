package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"updates_notifier/internal/config"
	"updates_notifier/internal/crawler"
	"updates_notifier/internal/models"

	"github.com/stretchr/testify/require"
)

type memorySaver struct {
	saved map[string]models.Record
}

func newMemorySaver() *memorySaver {
	return &memorySaver{saved: map[string]models.Record{}}
}

func (m *memorySaver) SaveRecord(_ context.Context, rec models.Record) (bool, error) {
	key := rec.URL + "|" + rec.NotifierName
	if _, ok := m.saved[key]; ok {
		return false, nil
	}
	m.saved[key] = rec
	return true, nil
}

type memoryPublisher struct {
	events []models.ChangeEvent
}

func (m *memoryPublisher) PublishEvent(_ context.Context, ev models.ChangeEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func feedXML(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
	<rss version="2.0">
		<channel>
			<title>Test Feed</title>` + items + `
		</channel>
	</rss>`
}

func TestFetchFeed(t *testing.T) {
	xml := feedXML(`
			<item>
				<title>Test Title</title>
				<link>http://example.com/test</link>
				<pubDate>Wed, 20 Aug 2025 15:04:05 +0000</pubDate>
			</item>`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(xml))
	}))
	defer server.Close()

	rss, err := crawler.FetchFeed(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "Test Feed", rss.Channel.Title)
	require.Len(t, rss.Channel.Items, 1)
	require.Equal(t, "Test Title", rss.Channel.Items[0].Title)
	require.Equal(t, "http://example.com/test", rss.Channel.Items[0].Link)
}

func TestCrawlerRun(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -1).Format(time.RFC1123Z)
	old := time.Now().AddDate(0, 0, -30).Format(time.RFC1123Z)

	xml := feedXML(fmt.Sprintf(`
			<item>
				<title>Fresh</title>
				<link>http://example.com/fresh</link>
				<pubDate>%s</pubDate>
			</item>
			<item>
				<title>Stale</title>
				<link>http://example.com/stale</link>
				<pubDate>%s</pubDate>
			</item>
			<item>
				<title>Broken date</title>
				<link>http://example.com/broken</link>
				<pubDate>not a date</pubDate>
			</item>`, recent, old))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(xml))
	}))
	defer server.Close()

	notifiers := map[string]config.Notifier{
		"aws": {RSSFeeds: map[string]string{"Whats new": server.URL}},
	}

	saver := newMemorySaver()
	publisher := &memoryPublisher{}
	c := crawler.New(saver, publisher, notifiers, 7)

	c.Run(context.Background())

	// Зарегистрирована только свежая публикация, событие — created.
	require.Len(t, saver.saved, 1)
	require.Len(t, publisher.events, 1)
	require.Equal(t, models.EventCreated, publisher.events[0].Kind)
	require.Equal(t, "http://example.com/fresh", publisher.events[0].Record.URL)
	require.Equal(t, "Whats new", publisher.events[0].Record.Category)
	require.Equal(t, "aws", publisher.events[0].Record.NotifierName)

	// Повторный обход не публикует дубликаты.
	c.Run(context.Background())
	require.Len(t, publisher.events, 1)
}
