package digest

import (
	"context"
	"sort"
	"time"

	"updates_notifier/internal/models"
	"updates_notifier/internal/store"
)

// Формат pubtime: ISO-8601 без зоны, лексикографический порядок совпадает
// с хронологическим.
const pubTimeLayout = "2006-01-02T15:04:05"

const scanPageSize = 200

// Window описывает границы скользящего окна дайджеста.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow строит окно в days дней, заканчивающееся в момент now.
func NewWindow(days int, now time.Time) Window {
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
		Days:  days,
	}
}

// RecordScanner постранично отдаёт записи хранилища.
type RecordScanner interface {
	Scan(ctx context.Context, cursor string, limit int) (store.Page, error)
}

// Aggregator выбирает записи, опубликованные внутри окна.
type Aggregator struct {
	src RecordScanner
}

// NewAggregator создаёт Aggregator поверх источника записей.
func NewAggregator(src RecordScanner) *Aggregator {
	return &Aggregator{src: src}
}

// RecordsInWindow возвращает записи с w.Start ≤ pubtime ≤ w.End по
// возрастанию pubtime. Хранилище обходится постранично до исчерпания.
// Записи без pubtime исключаются. Пустой результат — не ошибка.
func (a *Aggregator) RecordsInWindow(ctx context.Context, w Window) ([]models.Record, error) {
	startISO := w.Start.Format(pubTimeLayout)
	endISO := w.End.Format(pubTimeLayout)

	var matched []models.Record
	cursor := ""
	for {
		page, err := a.src.Scan(ctx, cursor, scanPageSize)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			if r.PubTime == "" {
				continue
			}
			if r.PubTime >= startISO && r.PubTime <= endISO {
				matched = append(matched, r)
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PubTime < matched[j].PubTime
	})
	return matched, nil
}
