package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/a506488043/custom-card/internal/core/cards"
)

type postgresCardRepo struct {
	db *sql.DB
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(db *sql.DB) cards.Repository {
	return &postgresCardRepo{db: db}
}

const cardColumns = `url_hash, url, title, image, description, expires_at`

// Get retrieves a card by URL hash.
// Returns nil, nil if not found or expired (not an error condition).
func (r *postgresCardRepo) Get(ctx context.Context, urlHash string) (*cards.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM card_cache
		WHERE url_hash = $1 AND expires_at > NOW()
	`

	card, err := scanCard(r.db.QueryRowContext(ctx, query, urlHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// Upsert inserts card or replaces the row stored under its hash.
func (r *postgresCardRepo) Upsert(ctx context.Context, card *cards.Card) error {
	query := `
		INSERT INTO card_cache (url_hash, url, title, image, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url_hash) DO UPDATE
		SET url = EXCLUDED.url,
		    title = EXCLUDED.title,
		    image = EXCLUDED.image,
		    description = EXCLUDED.description,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		card.URLHash,
		card.URL,
		card.Title,
		card.Image,
		card.Description,
		card.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}
	return nil
}

// Delete removes a card by URL hash
func (r *postgresCardRepo) Delete(ctx context.Context, urlHash string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM card_cache WHERE url_hash = $1`, urlHash)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return cards.ErrNotFound
	}
	return nil
}

// List returns a page of cards, newest first, and the total matching count.
// Search is matched case-insensitively as a literal substring.
func (r *postgresCardRepo) List(ctx context.Context, opts cards.ListOptions) ([]*cards.Card, int, error) {
	where := ""
	args := []interface{}{}
	if opts.Search != "" {
		args = append(args, "%"+escapeLike(opts.Search)+"%")
		where = `WHERE url ILIKE $1 OR title ILIKE $1 OR description ILIKE $1`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM card_cache ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	offset := (opts.Page - 1) * opts.PerPage
	if offset < 0 {
		offset = 0
	}
	args = append(args, opts.PerPage, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM card_cache
		%s
		ORDER BY updated_at DESC, url_hash
		LIMIT $%d OFFSET $%d
	`, cardColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []*cards.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan card: %w", err)
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating cards: %w", err)
	}

	return items, total, nil
}

// UpdateFields replaces the displayable fields of an existing card.
func (r *postgresCardRepo) UpdateFields(ctx context.Context, urlHash string, fields cards.Fields) (*cards.Card, error) {
	query := `
		UPDATE card_cache
		SET title = $2, image = $3, description = $4, updated_at = NOW()
		WHERE url_hash = $1
		RETURNING ` + cardColumns

	card, err := scanCard(r.db.QueryRowContext(ctx, query, urlHash, fields.Title, fields.Image, fields.Description))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cards.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}
	return card, nil
}

// Truncate removes every card
func (r *postgresCardRepo) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE card_cache`); err != nil {
		return fmt.Errorf("failed to truncate card_cache: %w", err)
	}
	return nil
}

func (r *postgresCardRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row rowScanner) (*cards.Card, error) {
	var card cards.Card
	err := row.Scan(
		&card.URLHash,
		&card.URL,
		&card.Title,
		&card.Image,
		&card.Description,
		&card.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	card.URLHash = strings.TrimSpace(card.URLHash)
	return &card, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
