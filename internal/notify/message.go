package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"updates_notifier/internal/config"
	"updates_notifier/internal/models"
)

// slackMessage — универсальный структурированный payload уведомления.
type slackMessage struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Detail  string `json:"detail,omitempty"`
	URL     string `json:"url"`
}

// FormatMessage собирает JSON-тело сообщения для заданного типа назначения.
// Оба варианта несут одну и ту же информацию: заголовок, резюме, разбор
// и ссылку на оригинал.
func FormatMessage(destination string, rec models.Record) ([]byte, error) {
	switch destination {
	case config.DestinationSlack:
		return json.Marshal(slackMessage{
			Title:   rec.Title,
			Summary: rec.Summary,
			Detail:  rec.Detail,
			URL:     rec.URL,
		})
	case config.DestinationTeams:
		return json.Marshal(teamsCard(rec))
	default:
		return nil, fmt.Errorf("%w: unsupported destination %q", ErrConfiguration, destination)
	}
}

// teamsCard строит adaptive card: свёрнутое резюме, раскрываемый разбор
// и действие-ссылка на оригинал. Разрывы абзацев в разборе переводятся
// в соглашение назначения ("。\n" → "。\r").
func teamsCard(rec models.Record) map[string]any {
	detail := strings.ReplaceAll(rec.Detail, "。\n", "。\r")

	return map[string]any{
		"type": "message",
		"attachments": []any{
			map[string]any{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]any{
					"type":    "AdaptiveCard",
					"version": "1.3",
					"body": []any{
						map[string]any{
							"type": "ColumnSet",
							"columns": []any{
								map[string]any{
									"type":  "Column",
									"width": "auto",
									"items": []any{
										map[string]any{
											"type": "Container",
											"id":   "collapsedItems",
											"items": []any{
												map[string]any{
													"type": "TextBlock",
													"text": fmt.Sprintf("**%s**", rec.Title),
												},
												map[string]any{
													"type": "TextBlock",
													"wrap": true,
													"text": rec.Summary,
												},
											},
										},
										map[string]any{
											"type":      "Container",
											"id":        "expandedItems",
											"isVisible": false,
											"items": []any{
												map[string]any{
													"type": "TextBlock",
													"wrap": true,
													"text": detail,
												},
											},
										},
									},
								},
							},
						},
						map[string]any{
							"type": "Container",
							"items": []any{
								map[string]any{
									"type": "ColumnSet",
									"columns": []any{
										map[string]any{
											"type":  "Column",
											"width": "stretch",
											"items": []any{
												map[string]any{
													"type":      "TextBlock",
													"text":      "see less",
													"id":        "collapse",
													"isVisible": false,
													"wrap":      true,
													"color":     "Accent",
												},
												map[string]any{
													"type":  "TextBlock",
													"text":  "see more",
													"id":    "expand",
													"wrap":  true,
													"color": "Accent",
												},
											},
										},
									},
									"selectAction": map[string]any{
										"type": "Action.ToggleVisibility",
										"targetElements": []any{
											"collapse",
											"expand",
											"expandedItems",
										},
									},
								},
							},
						},
					},
					"actions": []any{
						map[string]any{
							"type":  "Action.OpenUrl",
							"title": "Open Link",
							"url":   rec.URL,
						},
					},
					"msteams": map[string]any{"width": "Full"},
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
				},
			},
		},
	}
}
