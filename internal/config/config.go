package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Поддерживаемые типы назначений уведомлений.
const (
	DestinationSlack = "slack"
	DestinationTeams = "teams"
)

// Notifier — именованная конфигурация источника: куда доставлять уведомления,
// где лежит webhook-URL и каким профилем суммаризации пользоваться.
// RSSFeeds отображает имя категории в URL ленты источника.
type Notifier struct {
	Destination       string            `json:"destination"`
	WebhookSecretName string            `json:"webhook_secret_name"`
	SummarizerName    string            `json:"summarizer_name"`
	RSSFeeds          map[string]string `json:"rss_feeds"`
}

// SummarizerProfile задаёт тон и язык генерируемых резюме.
type SummarizerProfile struct {
	Persona        string `json:"persona"`
	OutputLanguage string `json:"output_language"`
}

// DigestConfig настраивает формирование дайджеста.
type DigestConfig struct {
	Days       int    `json:"days"`
	Cron       string `json:"cron"`
	PathPrefix string `json:"path_prefix"`
}

// CrawlConfig настраивает опрос RSS-лент.
type CrawlConfig struct {
	Cron        string `json:"cron"`
	RecencyDays int    `json:"recency_days"`
}

// AMQPConfig задаёт подключение к брокеру событий изменений.
type AMQPConfig struct {
	URL   string `json:"url"`
	Queue string `json:"queue"`
}

// S3Config задаёт бакет для публикации дайджестов.
type S3Config struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
}

// SummarizerAPIConfig задаёт доступ к LLM-сервису суммаризации.
type SummarizerAPIConfig struct {
	BaseURL          string `json:"base_url"`
	Model            string `json:"model"`
	APIKeySecretName string `json:"api_key_secret_name"`
}

// Config хранит полную конфигурацию сервиса.
type Config struct {
	HTTPAddr      string                       `json:"http_addr"`
	PostgresURL   string                       `json:"postgres_url"`
	AMQP          AMQPConfig                   `json:"amqp"`
	S3            S3Config                     `json:"s3"`
	Digest        DigestConfig                 `json:"digest"`
	Crawl         CrawlConfig                  `json:"crawl"`
	SummarizerAPI SummarizerAPIConfig          `json:"summarizer_api"`
	Notifiers     map[string]Notifier          `json:"notifiers"`
	Summarizers   map[string]SummarizerProfile `json:"summarizers"`
}

// Validate проверяет согласованность конфигурации: назначения известны,
// ссылки на профили суммаризации разрешимы, URL лент валидны, окно
// дайджеста положительно.
func (cfg *Config) Validate() error {
	if len(cfg.Notifiers) == 0 {
		return errors.New("at least one notifier must be configured")
	}
	for name, n := range cfg.Notifiers {
		if n.Destination != DestinationSlack && n.Destination != DestinationTeams {
			return fmt.Errorf("notifier %q: unsupported destination %q", name, n.Destination)
		}
		if n.WebhookSecretName == "" {
			return fmt.Errorf("notifier %q: webhook_secret_name is required", name)
		}
		if _, ok := cfg.Summarizers[n.SummarizerName]; !ok {
			return fmt.Errorf("notifier %q: unknown summarizer %q", name, n.SummarizerName)
		}
		for category, feedURL := range n.RSSFeeds {
			if _, err := url.ParseRequestURI(feedURL); err != nil {
				return fmt.Errorf("notifier %q: invalid RSS URL for category %q: %s", name, category, feedURL)
			}
		}
	}
	if cfg.Digest.Days < 1 {
		return errors.New("digest window must be ≥ 1 day")
	}
	if cfg.Crawl.RecencyDays < 1 {
		return errors.New("crawl recency window must be ≥ 1 day")
	}
	return nil
}

// ApplyDefaults подставляет значения по умолчанию для необязательных полей.
func (cfg *Config) ApplyDefaults() {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Digest.Days == 0 {
		cfg.Digest.Days = 7
	}
	if cfg.Digest.PathPrefix == "" {
		cfg.Digest.PathPrefix = "digests"
	}
	if cfg.Crawl.RecencyDays == 0 {
		cfg.Crawl.RecencyDays = 7
	}
}

// LoadConfig читает JSON-файл по пути path и декодирует его в Config.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
