package models

import "errors"

// CategoryUncategorized подставляется вместо отсутствующей категории записи.
const CategoryUncategorized = "Uncategorized"

// Record представляет одну опубликованную новость или анонс обновления.
// Идентичность записи определяется парой (URL, NotifierName): один и тот же URL
// может повторяться под другим источником, но не под тем же.
// PubTime хранится строкой ISO-8601, поэтому сравнение и фильтрация по времени
// выполняются лексикографически.
type Record struct {
	URL          string `json:"url"`
	NotifierName string `json:"notifier_name"`
	Category     string `json:"category,omitempty"`
	Title        string `json:"title"`
	PubTime      string `json:"pubtime,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// Validate проверяет обязательные поля записи на границе хранилища.
func (r *Record) Validate() error {
	if r.URL == "" {
		return errors.New("record url is required")
	}
	if r.NotifierName == "" {
		return errors.New("record notifier_name is required")
	}
	return nil
}

// CategoryOrDefault возвращает категорию записи либо CategoryUncategorized.
func (r *Record) CategoryOrDefault() string {
	if r.Category == "" {
		return CategoryUncategorized
	}
	return r.Category
}

// Виды событий, приходящих из потока изменений хранилища.
const (
	EventCreated  = "created"
	EventModified = "modified"
)

// ChangeEvent — уведомление об одном изменении записи. Для modified-событий
// PrevTitle и PrevURL содержат прежние значения отслеживаемых полей.
type ChangeEvent struct {
	Kind      string `json:"kind"`
	Record    Record `json:"record"`
	PrevTitle string `json:"prev_title,omitempty"`
	PrevURL   string `json:"prev_url,omitempty"`
}
