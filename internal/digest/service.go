package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"updates_notifier/internal/logger"
	"updates_notifier/internal/metrics"
)

// ErrBadWindow означает некорректные параметры окна дайджеста.
var ErrBadWindow = errors.New("invalid digest window")

// Статусы результата в стиле HTTP: их же возвращает внешний интерфейс.
const (
	StatusOK     = 200
	StatusNoData = 404
	StatusFailed = 500
)

const contentTypeMarkdown = "text/markdown; charset=utf-8"

// Archiver сохраняет готовый документ по логическому пути.
type Archiver interface {
	Put(ctx context.Context, path string, body []byte, contentType string) error
}

// GroupResult — итог по одной группе дайджеста.
type GroupResult struct {
	Count       int    `json:"count"`
	ArchivePath string `json:"archive_path"`
}

// Result — структурированный итог запуска дайджеста.
type Result struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Groups  map[string]GroupResult `json:"groups,omitempty"`
}

// Service собирает дайджест: выборка окна, группировка по таблице правил,
// рендеринг и публикация по одному документу на группу.
type Service struct {
	agg    *Aggregator
	rules  GroupRules
	arch   Archiver
	prefix string
	log    *logger.Entry
}

// NewService создаёт Service. Таблица правил проверяется на полноту.
func NewService(src RecordScanner, rules GroupRules, arch Archiver, pathPrefix string) (*Service, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		agg:    NewAggregator(src),
		rules:  rules,
		arch:   arch,
		prefix: pathPrefix,
		log:    logger.WithComponent("digest"),
	}, nil
}

// Generate формирует и публикует дайджест за окно в days дней от now.
// Сбои хранилища и публикации превращаются в результат со статусом 500;
// некорректное окно — ошибка вызова.
func (s *Service) Generate(ctx context.Context, days int, now time.Time) (Result, error) {
	if days <= 0 {
		return Result{}, fmt.Errorf("%w: days must be positive, got %d", ErrBadWindow, days)
	}

	w := NewWindow(days, now)
	records, err := s.agg.RecordsInWindow(ctx, w)
	if err != nil {
		s.log.Errorf("Failed to scan records: %v", err)
		metrics.DigestRuns.WithLabelValues("failed").Inc()
		return Result{Status: StatusFailed, Message: "failed to read records from the store"}, nil
	}

	if len(records) == 0 {
		s.log.Infof("No records published in the last %d days", days)
		metrics.DigestRuns.WithLabelValues("empty").Inc()
		return Result{
			Status:  StatusNoData,
			Message: fmt.Sprintf("no records published in the last %d days", days),
		}, nil
	}

	date := now.Format(dateLayout)
	groups := s.rules.Apply(records)

	result := Result{
		Status:  StatusOK,
		Message: fmt.Sprintf("digest generated for %d records", len(records)),
		Groups:  make(map[string]GroupResult, len(s.rules)),
	}

	for _, rule := range s.rules {
		sub := groups[rule.Name]
		doc := RenderMarkdown(sub, w)

		// Путь выводится из даты запуска: повторный запуск в тот же день
		// перезаписывает документ, а не плодит копии.
		path := fmt.Sprintf("%s/%s/%s.md", s.prefix, rule.Name, date)
		if err := s.arch.Put(ctx, path, []byte(doc), contentTypeMarkdown); err != nil {
			s.log.Errorf("Failed to archive %s: %v", path, err)
			metrics.DigestRuns.WithLabelValues("failed").Inc()
			return Result{Status: StatusFailed, Message: fmt.Sprintf("failed to archive group %s", rule.Name)}, nil
		}

		result.Groups[rule.Name] = GroupResult{Count: len(sub), ArchivePath: path}
	}

	s.log.WithField("records", len(records)).Info("Digest generated")
	metrics.DigestRuns.WithLabelValues("ok").Inc()
	return result, nil
}
