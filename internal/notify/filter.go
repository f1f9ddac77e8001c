package notify

import (
	"updates_notifier/internal/metrics"
	"updates_notifier/internal/models"
)

// FilterEvents отбирает из пакета события, достойные уведомления:
//   - created проходят всегда;
//   - modified — только если title или url отличаются от прежних значений;
//   - все прочие виды отбрасываются.
//
// Повторная фильтрация того же пакета даёт тот же результат, поэтому
// повторная доставка событий безопасна. Запись summary/detail диспетчером
// не меняет title и url и никогда не проходит фильтр.
func FilterEvents(events []models.ChangeEvent) []models.ChangeEvent {
	var accepted []models.ChangeEvent
	for _, ev := range events {
		if notifiable(ev) {
			accepted = append(accepted, ev)
			metrics.EventsAccepted.Inc()
		} else {
			metrics.EventsDropped.Inc()
		}
	}
	return accepted
}

func notifiable(ev models.ChangeEvent) bool {
	switch ev.Kind {
	case models.EventCreated:
		return true
	case models.EventModified:
		return ev.Record.Title != ev.PrevTitle || ev.Record.URL != ev.PrevURL
	default:
		return false
	}
}
