package digest

import (
	"fmt"
	"strings"
	"time"

	"updates_notifier/internal/models"
)

const (
	placeholderTitle = "Untitled"
	dateLayout       = "2006-01-02"
)

// RenderMarkdown детерминированно превращает набор записей в markdown-документ:
// заголовок с границами окна, строка описания, затем секции по категориям
// в лексикографическом порядке. Идентичный вход даёт идентичный текст.
func RenderMarkdown(records []models.Record, w Window) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weekly updates %s to %s\n\n",
		w.Start.Format(dateLayout), w.End.Format(dateLayout))
	fmt.Fprintf(&b, "A summary of product news and updates published in the last %d days.\n\n", w.Days)

	groups := GroupByCategory(records)
	for _, category := range SortedCategories(groups) {
		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, rec := range groups[category] {
			writeRecord(&b, rec)
		}
	}

	return b.String()
}

func writeRecord(b *strings.Builder, rec models.Record) {
	title := rec.Title
	if title == "" {
		title = placeholderTitle
	}

	if rec.URL == "" {
		fmt.Fprintf(b, "### %s\n", title)
	} else {
		fmt.Fprintf(b, "### [%s](%s)\n", title, rec.URL)
	}

	fmt.Fprintf(b, "**Published:** %s\n\n", formatPubDate(rec.PubTime))

	if rec.Detail != "" {
		fmt.Fprintf(b, "%s\n\n", rec.Detail)
	}
}

// formatPubDate приводит ISO-метку к короткой дате. Если метка не
// разбирается, возвращается исходная строка как есть.
func formatPubDate(pubtime string) string {
	t, err := time.Parse(pubTimeLayout, pubtime)
	if err != nil {
		return pubtime
	}
	return t.Format(dateLayout)
}
