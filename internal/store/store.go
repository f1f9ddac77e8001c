package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"updates_notifier/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound возвращается, когда запись с заданным ключом отсутствует.
var ErrNotFound = errors.New("record not found")

// AccessError оборачивает сбой обращения к хранилищу.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *AccessError) Unwrap() error { return e.Err }

// cursorSep разделяет части ключа внутри курсора постраничного обхода.
const cursorSep = "\x1f"

// Page — одна страница результата Scan. Пустой NextCursor означает,
// что хранилище исчерпано.
type Page struct {
	Records    []models.Record
	NextCursor string
}

// Store инкапсулирует пул соединений к PostgreSQL и операции над записями.
type Store struct {
	Pool *pgxpool.Pool
}

// New создаёт новый пул соединений по connString и возвращает Store.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %v", err)
	}
	return &Store{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() {
	s.Pool.Close()
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Scan возвращает очередную страницу записей, упорядоченных по составному
// ключу. Передайте пустой cursor для первой страницы и NextCursor
// предыдущей — для последующих.
func (s *Store) Scan(ctx context.Context, cursor string, limit int) (Page, error) {
	afterURL, afterNotifier := splitCursor(cursor)

	rows, err := s.Pool.Query(ctx, `
        SELECT url, notifier_name,
               COALESCE(category, ''), COALESCE(title, ''),
               COALESCE(pubtime, ''), COALESCE(summary, ''), COALESCE(detail, '')
        FROM records
        WHERE (url, notifier_name) > ($1, $2)
        ORDER BY url, notifier_name
        LIMIT $3
    `, afterURL, afterNotifier, limit)
	if err != nil {
		return Page{}, &AccessError{Op: "scan", Err: err}
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.URL, &r.NotifierName, &r.Category, &r.Title, &r.PubTime, &r.Summary, &r.Detail); err != nil {
			return Page{}, &AccessError{Op: "scan", Err: err}
		}
		page.Records = append(page.Records, r)
	}
	if err := rows.Err(); err != nil {
		return Page{}, &AccessError{Op: "scan", Err: err}
	}

	if len(page.Records) == limit {
		last := page.Records[len(page.Records)-1]
		page.NextCursor = last.URL + cursorSep + last.NotifierName
	}
	return page, nil
}

// GetByKey возвращает запись по составному ключу (url, notifier_name).
func (s *Store) GetByKey(ctx context.Context, url, notifierName string) (models.Record, error) {
	var r models.Record
	err := s.Pool.QueryRow(ctx, `
        SELECT url, notifier_name,
               COALESCE(category, ''), COALESCE(title, ''),
               COALESCE(pubtime, ''), COALESCE(summary, ''), COALESCE(detail, '')
        FROM records
        WHERE url = $1 AND notifier_name = $2
    `, url, notifierName).Scan(&r.URL, &r.NotifierName, &r.Category, &r.Title, &r.PubTime, &r.Summary, &r.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Record{}, ErrNotFound
	}
	if err != nil {
		return models.Record{}, &AccessError{Op: "get", Err: err}
	}
	return r, nil
}

// SaveRecord сохраняет запись, если её ещё нет. Возвращает true, когда
// запись действительно вставлена, и false при конфликте по ключу.
func (s *Store) SaveRecord(ctx context.Context, rec models.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	tag, err := s.Pool.Exec(ctx, `
        INSERT INTO records (url, notifier_name, category, title, pubtime)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (url, notifier_name) DO NOTHING
    `, rec.URL, rec.NotifierName, rec.Category, rec.Title, rec.PubTime)
	if err != nil {
		return false, &AccessError{Op: "save", Err: err}
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateEnrichment записывает summary и detail для существующей записи.
// Повторная запись тех же значений безопасна.
func (s *Store) UpdateEnrichment(ctx context.Context, url, notifierName, summary, detail string) error {
	tag, err := s.Pool.Exec(ctx, `
        UPDATE records SET summary = $3, detail = $4
        WHERE url = $1 AND notifier_name = $2
    `, url, notifierName, summary, detail)
	if err != nil {
		return &AccessError{Op: "update", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func splitCursor(cursor string) (string, string) {
	if cursor == "" {
		return "", ""
	}
	parts := strings.SplitN(cursor, cursorSep, 2)
	if len(parts) != 2 {
		return cursor, ""
	}
	return parts[0], parts[1]
}
