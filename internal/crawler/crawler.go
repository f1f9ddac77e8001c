package crawler

import (
	"context"
	"time"

	"updates_notifier/internal/config"
	"updates_notifier/internal/logger"
	"updates_notifier/internal/metrics"
	"updates_notifier/internal/models"
)

// Формат pubtime в хранилище.
const pubTimeLayout = "2006-01-02T15:04:05"

// RecordSaver сохраняет запись, если её ещё нет.
type RecordSaver interface {
	SaveRecord(ctx context.Context, rec models.Record) (bool, error)
}

// EventPublisher публикует события о появлении новых записей.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.ChangeEvent) error
}

// Crawler опрашивает RSS-ленты источников, регистрирует новые записи и
// публикует события об их появлении.
type Crawler struct {
	store       RecordSaver
	publisher   EventPublisher
	notifiers   map[string]config.Notifier
	recencyDays int
	log         *logger.Entry
}

// New создаёт Crawler. recencyDays ограничивает возраст публикаций,
// которые имеет смысл регистрировать.
func New(store RecordSaver, publisher EventPublisher, notifiers map[string]config.Notifier, recencyDays int) *Crawler {
	return &Crawler{
		store:       store,
		publisher:   publisher,
		notifiers:   notifiers,
		recencyDays: recencyDays,
		log:         logger.WithComponent("crawler"),
	}
}

// Run обходит все ленты всех источников. Сбой одной ленты не прерывает
// обход остальных.
func (c *Crawler) Run(ctx context.Context) {
	for notifierName, notifier := range c.notifiers {
		for category, feedURL := range notifier.RSSFeeds {
			c.crawlFeed(ctx, notifierName, category, feedURL)
		}
	}
}

func (c *Crawler) crawlFeed(ctx context.Context, notifierName, category, feedURL string) {
	log := c.log.WithField("url", feedURL)

	rss, err := FetchFeed(ctx, feedURL)
	if err != nil {
		log.Errorf("Failed to fetch RSS: %v", err)
		return
	}

	log = log.WithField("items_count", len(rss.Channel.Items))
	log.Info("Processing RSS feed")

	cutoff := time.Now().AddDate(0, 0, -c.recencyDays)
	for _, item := range rss.Channel.Items {
		c.processItem(ctx, log, item, notifierName, category, cutoff)
	}
}

func (c *Crawler) processItem(ctx context.Context, log *logger.Entry, item models.Item, notifierName, category string, cutoff time.Time) {
	pubDate, err := parsePubDate(item.PubDate)
	if err != nil {
		log.Warnf("Failed to parse date '%s': %v", item.PubDate, err)
		return
	}

	if pubDate.Before(cutoff) {
		log.Debugf("Old entry skipped: %s", item.Title)
		return
	}

	rec := models.Record{
		URL:          item.Link,
		NotifierName: notifierName,
		Category:     category,
		Title:        item.Title,
		PubTime:      pubDate.Format(pubTimeLayout),
	}

	inserted, err := c.store.SaveRecord(ctx, rec)
	if err != nil {
		log.Warnf("Failed to save record: %v", err)
		return
	}
	if !inserted {
		return
	}

	metrics.RecordsIngested.Inc()
	ev := models.ChangeEvent{Kind: models.EventCreated, Record: rec}
	if err := c.publisher.PublishEvent(ctx, ev); err != nil {
		log.Errorf("Failed to publish change event for %s: %v", rec.URL, err)
	}
}
