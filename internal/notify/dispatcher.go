package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"updates_notifier/internal/config"
	"updates_notifier/internal/enrich"
	"updates_notifier/internal/logger"
	"updates_notifier/internal/metrics"
	"updates_notifier/internal/models"
	"updates_notifier/internal/secrets"

	"golang.org/x/time/rate"
)

// ErrConfiguration означает неразрешимую конфигурацию источника: такие
// события не имеет смысла повторять.
var ErrConfiguration = errors.New("notifier configuration error")

// DeliveryError — сбой доставки сообщения в webhook одного источника.
type DeliveryError struct {
	Notifier string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Notifier, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }

// Пауза между доставками, чтобы не упереться в лимиты назначений.
const deliveryInterval = 500 * time.Millisecond

// ContentFetcher извлекает текст публикации по ссылке; пустая строка
// означает недоступное или пустое содержимое.
type ContentFetcher interface {
	Content(ctx context.Context, url string) string
}

// Summarizer генерирует резюме и разбор для текста публикации.
type Summarizer interface {
	Summarize(ctx context.Context, content, language, persona string) (enrich.Summary, error)
}

// RecordUpdater сохраняет результат обогащения обратно в хранилище.
type RecordUpdater interface {
	UpdateEnrichment(ctx context.Context, url, notifierName, summary, detail string) error
}

// WebhookSender доставляет готовое JSON-сообщение по URL назначения.
type WebhookSender interface {
	Post(ctx context.Context, url string, body []byte) error
}

// Outcome — наблюдаемый итог обработки одного события.
type Outcome struct {
	URL       string `json:"url"`
	Notifier  string `json:"notifier"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`

	err error
}

// Err возвращает ошибку обработки элемента, если она была.
func (o Outcome) Err() error { return o.err }

// Dispatcher последовательно доставляет уведомления о принятых событиях.
// Каждое событие — независимая единица работы: сбой одного не блокирует
// обработку остальных.
type Dispatcher struct {
	notifiers   map[string]config.Notifier
	summarizers map[string]config.SummarizerProfile
	fetcher     ContentFetcher
	summarizer  Summarizer
	store       RecordUpdater
	secrets     secrets.Store
	sender      WebhookSender
	limiter     *rate.Limiter
	log         *logger.Entry
}

// NewDispatcher создаёт Dispatcher с внедрёнными коллабораторами.
func NewDispatcher(
	notifiers map[string]config.Notifier,
	summarizers map[string]config.SummarizerProfile,
	fetcher ContentFetcher,
	summarizer Summarizer,
	store RecordUpdater,
	secretStore secrets.Store,
	sender WebhookSender,
) *Dispatcher {
	return &Dispatcher{
		notifiers:   notifiers,
		summarizers: summarizers,
		fetcher:     fetcher,
		summarizer:  summarizer,
		store:       store,
		secrets:     secretStore,
		sender:      sender,
		limiter:     rate.NewLimiter(rate.Every(deliveryInterval), 1),
		log:         logger.WithComponent("dispatcher"),
	}
}

// Dispatch обрабатывает события по одному, в порядке поступления, и
// возвращает итог по каждому. Между доставками выдерживается пауза.
func (d *Dispatcher) Dispatch(ctx context.Context, events []models.ChangeEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(events))
	for i, ev := range events {
		if err := d.limiter.Wait(ctx); err != nil {
			// Контекст отменён: оставшиеся события помечаются недоставленными.
			for _, rest := range events[i:] {
				outcomes = append(outcomes, failedOutcome(rest, err))
			}
			break
		}

		oc := Outcome{URL: ev.Record.URL, Notifier: ev.Record.NotifierName}
		if err := d.dispatchOne(ctx, ev); err != nil {
			d.log.WithField("url", ev.Record.URL).Errorf("Failed to notify: %v", err)
			metrics.NotificationsFailed.Inc()
			oc.err = err
			oc.Error = err.Error()
		} else {
			metrics.NotificationsSent.Inc()
			oc.Delivered = true
		}
		outcomes = append(outcomes, oc)
	}
	return outcomes
}

func failedOutcome(ev models.ChangeEvent, err error) Outcome {
	return Outcome{
		URL:      ev.Record.URL,
		Notifier: ev.Record.NotifierName,
		Error:    err.Error(),
		err:      err,
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ev models.ChangeEvent) error {
	rec := ev.Record

	notifier, ok := d.notifiers[rec.NotifierName]
	if !ok {
		return fmt.Errorf("%w: unknown notifier %q", ErrConfiguration, rec.NotifierName)
	}
	profile, ok := d.summarizers[notifier.SummarizerName]
	if !ok {
		return fmt.Errorf("%w: unknown summarizer %q", ErrConfiguration, notifier.SummarizerName)
	}

	// Недоступное содержимое — не сбой: уведомление уходит без резюме.
	if content := d.fetcher.Content(ctx, rec.URL); content != "" {
		sum, err := d.summarizer.Summarize(ctx, content, profile.OutputLanguage, profile.Persona)
		if err != nil {
			return err
		}
		rec.Summary = sum.Text
		rec.Detail = sum.Detail

		// Запись обогащения — best effort: расхождение хранилища с
		// доставленным сообщением допустимо и устраняется повтором.
		if err := d.store.UpdateEnrichment(ctx, rec.URL, rec.NotifierName, rec.Summary, rec.Detail); err != nil {
			d.log.Warnf("Failed to persist enrichment for %s: %v", rec.URL, err)
		}
	}

	body, err := FormatMessage(notifier.Destination, rec)
	if err != nil {
		return err
	}

	webhookURL, err := d.secrets.Get(ctx, notifier.WebhookSecretName)
	if err != nil {
		return fmt.Errorf("%w: webhook secret %q: %v", ErrConfiguration, notifier.WebhookSecretName, err)
	}

	if err := d.sender.Post(ctx, webhookURL, body); err != nil {
		return &DeliveryError{Notifier: rec.NotifierName, Err: err}
	}
	return nil
}
