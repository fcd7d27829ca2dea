// Package sqlite persists facilitator templates in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/photolangage/photolangage/internal/domain/template"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	question             TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	default_folder_id    TEXT NOT NULL DEFAULT '',
	icon                 TEXT NOT NULL DEFAULT '',
	archived             INTEGER NOT NULL DEFAULT 0,
	archive_date         TEXT NOT NULL DEFAULT '',
	archive_notes        TEXT NOT NULL DEFAULT '',
	enable_emotion_input INTEGER NOT NULL DEFAULT 0
)`

// Open opens (and if needed creates) the template database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open template db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create template schema: %w", err)
	}
	return db, nil
}

// TemplateRepository stores custom templates.
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) List(ctx context.Context) ([]template.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, question, description, default_folder_id, icon,
		       archived, archive_date, archive_notes, enable_emotion_input
		FROM templates
		ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []template.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tpl)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*template.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, question, description, default_folder_id, icon,
		       archived, archive_date, archive_notes, enable_emotion_input
		FROM templates WHERE id = ?`, id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, template.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (r *TemplateRepository) Save(ctx context.Context, tpl *template.Template) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO templates (id, title, question, description, default_folder_id,
		                       icon, archived, archive_date, archive_notes, enable_emotion_input)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			question = excluded.question,
			description = excluded.description,
			default_folder_id = excluded.default_folder_id,
			icon = excluded.icon,
			archived = excluded.archived,
			archive_date = excluded.archive_date,
			archive_notes = excluded.archive_notes,
			enable_emotion_input = excluded.enable_emotion_input`,
		tpl.ID, tpl.Title, tpl.Question, tpl.Description, tpl.DefaultFolderID,
		tpl.Icon, boolToInt(tpl.Archived), tpl.ArchiveDate, tpl.ArchiveNotes,
		boolToInt(tpl.EnableEmotionInput))
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return template.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*template.Template, error) {
	var tpl template.Template
	var archived, emotion int
	err := row.Scan(&tpl.ID, &tpl.Title, &tpl.Question, &tpl.Description,
		&tpl.DefaultFolderID, &tpl.Icon, &archived, &tpl.ArchiveDate,
		&tpl.ArchiveNotes, &emotion)
	if err != nil {
		return nil, err
	}
	tpl.Archived = archived != 0
	tpl.EnableEmotionInput = emotion != 0
	return &tpl, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
