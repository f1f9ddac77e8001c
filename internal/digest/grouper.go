package digest

import (
	"errors"
	"sort"

	"updates_notifier/internal/models"
)

// GroupByCategory разбивает записи по буквальному значению категории,
// сохраняя их относительный порядок. Для записей без категории
// используется значение по умолчанию.
func GroupByCategory(records []models.Record) map[string][]models.Record {
	groups := make(map[string][]models.Record)
	for _, r := range records {
		category := r.CategoryOrDefault()
		groups[category] = append(groups[category], r)
	}
	return groups
}

// SortedCategories возвращает ключи разбиения в лексикографическом порядке,
// чтобы вывод был детерминированным.
func SortedCategories(groups map[string][]models.Record) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GroupRule — одно правило именованной группировки. Match со значением nil
// совпадает с любой категорией (catch-all).
type GroupRule struct {
	Name        string
	Label       string
	Description string
	Match       func(category string) bool
}

// GroupRules — упорядоченная таблица правил. Правила применяются по порядку
// таблицы, выигрывает первое совпавшее; последнее правило обязано быть
// catch-all, чтобы разбиение было полным.
type GroupRules []GroupRule

// Validate проверяет, что таблица непуста и завершается catch-all правилом.
func (rs GroupRules) Validate() error {
	if len(rs) == 0 {
		return errors.New("group rules table is empty")
	}
	if rs[len(rs)-1].Match != nil {
		return errors.New("last group rule must be a catch-all")
	}
	return nil
}

// Apply разбивает записи на именованные группы. Каждая запись попадает ровно
// в одну группу; группы без записей сохраняются с пустой последовательностью.
func (rs GroupRules) Apply(records []models.Record) map[string][]models.Record {
	groups := make(map[string][]models.Record, len(rs))
	for _, rule := range rs {
		groups[rule.Name] = []models.Record{}
	}
	for _, rec := range records {
		for _, rule := range rs {
			if rule.Match == nil || rule.Match(rec.Category) {
				groups[rule.Name] = append(groups[rule.Name], rec)
				break
			}
		}
	}
	return groups
}

// DefaultRules — стандартная таблица групп дайджеста: анонсы "Whats new"
// отдельно, всё остальное — в others. Новые категории источников намеренно
// попадают в others, пока для них не заведено явное правило.
func DefaultRules() GroupRules {
	return GroupRules{
		{
			Name:        "whats-new",
			Label:       "What's New",
			Description: "Newly announced features and service updates.",
			Match:       func(category string) bool { return category == "Whats new" },
		},
		{
			Name:        "others",
			Label:       "Others",
			Description: "Everything else published in the period.",
		},
	}
}
