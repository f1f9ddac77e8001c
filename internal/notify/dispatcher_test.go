package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"updates_notifier/internal/config"
	"updates_notifier/internal/enrich"
	"updates_notifier/internal/models"
	"updates_notifier/internal/notify"
	"updates_notifier/internal/secrets"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	content map[string]string
}

func (f *fakeFetcher) Content(_ context.Context, url string) string {
	return f.content[url]
}

type fakeSummarizer struct {
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, content, language, persona string) (enrich.Summary, error) {
	f.calls++
	if f.err != nil {
		return enrich.Summary{}, f.err
	}
	return enrich.Summary{Text: "summary of " + content, Detail: "- detail"}, nil
}

type fakeUpdater struct {
	err     error
	updates []string
}

func (f *fakeUpdater) UpdateEnrichment(_ context.Context, url, notifier, summary, detail string) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, url)
	return nil
}

type sentMessage struct {
	url  string
	body []byte
}

type fakeSender struct {
	failFor map[string]error
	sent    []sentMessage
}

func (f *fakeSender) Post(_ context.Context, url string, body []byte) error {
	if err, ok := f.failFor[url]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{url: url, body: body})
	return nil
}

func testNotifiers() map[string]config.Notifier {
	return map[string]config.Notifier{
		"aws": {
			Destination:       config.DestinationSlack,
			WebhookSecretName: "aws-webhook",
			SummarizerName:    "engineer",
		},
		"teams-src": {
			Destination:       config.DestinationTeams,
			WebhookSecretName: "teams-webhook",
			SummarizerName:    "engineer",
		},
	}
}

func testSummarizers() map[string]config.SummarizerProfile {
	return map[string]config.SummarizerProfile{
		"engineer": {Persona: "an engineer", OutputLanguage: "English"},
	}
}

func testSecrets() secrets.StaticStore {
	return secrets.StaticStore{
		"aws-webhook":   "https://hooks.example.com/aws",
		"teams-webhook": "https://hooks.example.com/teams",
	}
}

func createdEvent(url, notifier string) models.ChangeEvent {
	return models.ChangeEvent{
		Kind:   models.EventCreated,
		Record: models.Record{URL: url, NotifierName: notifier, Title: "Post"},
	}
}

func TestDispatch_EnrichedDelivery(t *testing.T) {
	fetcher := &fakeFetcher{content: map[string]string{"https://example.com/1": "blog body"}}
	updater := &fakeUpdater{}
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), fetcher, &fakeSummarizer{}, updater, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{createdEvent("https://example.com/1", "aws")})

	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Delivered)
	require.NoError(t, outcomes[0].Err())

	// Обогащение сохранено и попало в доставленное сообщение.
	require.Equal(t, []string{"https://example.com/1"}, updater.updates)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "https://hooks.example.com/aws", sender.sent[0].url)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(sender.sent[0].body, &msg))
	require.Equal(t, "summary of blog body", msg["summary"])
}

func TestDispatch_AbsentContentStillDelivers(t *testing.T) {
	summarizer := &fakeSummarizer{}
	updater := &fakeUpdater{}
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), &fakeFetcher{}, summarizer, updater, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{createdEvent("https://example.com/gone", "aws")})

	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Delivered)

	// Суммаризация и запись обогащения пропущены, доставка состоялась.
	require.Zero(t, summarizer.calls)
	require.Empty(t, updater.updates)
	require.Len(t, sender.sent, 1)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(sender.sent[0].body, &msg))
	require.Empty(t, msg["summary"])
}

func TestDispatch_UnknownNotifierIsIsolated(t *testing.T) {
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), &fakeFetcher{}, &fakeSummarizer{}, &fakeUpdater{}, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{
		createdEvent("https://example.com/1", "ghost"),
		createdEvent("https://example.com/2", "aws"),
	})

	require.Len(t, outcomes, 2)
	require.False(t, outcomes[0].Delivered)
	require.ErrorIs(t, outcomes[0].Err(), notify.ErrConfiguration)
	require.True(t, outcomes[1].Delivered)
	require.Len(t, sender.sent, 1)
}

func TestDispatch_DeliveryFailureIsIsolated(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{
		"https://hooks.example.com/aws": errors.New("connection refused"),
	}}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), &fakeFetcher{}, &fakeSummarizer{}, &fakeUpdater{}, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{
		createdEvent("https://example.com/1", "aws"),
		createdEvent("https://example.com/2", "teams-src"),
	})

	require.Len(t, outcomes, 2)
	require.False(t, outcomes[0].Delivered)

	var deliveryErr *notify.DeliveryError
	require.ErrorAs(t, outcomes[0].Err(), &deliveryErr)
	require.Equal(t, "aws", deliveryErr.Notifier)

	require.True(t, outcomes[1].Delivered)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "https://hooks.example.com/teams", sender.sent[0].url)
}

func TestDispatch_EnrichmentPersistFailureDoesNotBlockDelivery(t *testing.T) {
	fetcher := &fakeFetcher{content: map[string]string{"https://example.com/1": "body"}}
	updater := &fakeUpdater{err: errors.New("store down")}
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), fetcher, &fakeSummarizer{}, updater, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{createdEvent("https://example.com/1", "aws")})

	require.True(t, outcomes[0].Delivered)
	require.Len(t, sender.sent, 1)
}

func TestDispatch_SummarizerFailureFailsItem(t *testing.T) {
	fetcher := &fakeFetcher{content: map[string]string{"https://example.com/1": "body"}}
	summarizer := &fakeSummarizer{err: enrich.ErrMalformedSummary}
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), fetcher, summarizer, &fakeUpdater{}, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{createdEvent("https://example.com/1", "aws")})

	require.False(t, outcomes[0].Delivered)
	require.ErrorIs(t, outcomes[0].Err(), enrich.ErrMalformedSummary)
	require.Empty(t, sender.sent)
}

func TestDispatch_PreservesOrder(t *testing.T) {
	sender := &fakeSender{}

	d := notify.NewDispatcher(testNotifiers(), testSummarizers(), &fakeFetcher{}, &fakeSummarizer{}, &fakeUpdater{}, testSecrets(), sender)
	outcomes := d.Dispatch(context.Background(), []models.ChangeEvent{
		createdEvent("https://example.com/1", "aws"),
		createdEvent("https://example.com/2", "aws"),
		createdEvent("https://example.com/3", "aws"),
	})

	require.Len(t, outcomes, 3)
	for i, oc := range outcomes {
		require.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}[i], oc.URL)
	}
}
