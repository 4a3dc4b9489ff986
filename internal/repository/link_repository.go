package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tinyurl-be/internal/entities"
)

// LinkRepository defines the interface for short link database operations
type LinkRepository interface {
	Create(ctx context.Context, shortID, redirectURL, qrcode string, createdBy *string) (*entities.Link, error)
	FindAll(ctx context.Context) ([]*entities.Link, error)
	FindByShortID(ctx context.Context, shortID string) (*entities.Link, error)
	RecordVisit(ctx context.Context, shortID string, at time.Time) (string, error)
}

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link with an empty visit history
func (r *linkRepository) Create(ctx context.Context, shortID, redirectURL, qrcode string, createdBy *string) (*entities.Link, error) {
	query := `
		INSERT INTO links (short_id, redirect_url, qrcode, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, short_id, redirect_url, qrcode, created_by, created_at
	`

	link := entities.Link{VisitHistory: []entities.Visit{}}
	err := r.db.QueryRowContext(ctx, query, shortID, redirectURL, qrcode, createdBy).Scan(
		&link.ID,
		&link.ShortID,
		&link.RedirectURL,
		&link.QRCode,
		&link.CreatedBy,
		&link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return &link, nil
}

const linkWithVisitsQuery = `
	SELECT l.id, l.short_id, l.redirect_url, l.qrcode, l.created_by, l.created_at, v.visited_at
	FROM links l
	LEFT JOIN link_visits v ON v.link_id = l.id
`

// FindAll returns every link with its visit history, oldest link first
func (r *linkRepository) FindAll(ctx context.Context) ([]*entities.Link, error) {
	rows, err := r.db.QueryContext(ctx, linkWithVisitsQuery+`
		ORDER BY l.created_at ASC, l.id, v.visited_at ASC, v.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	defer rows.Close()

	return scanLinksWithVisits(rows)
}

// FindByShortID returns one link with its visit history
func (r *linkRepository) FindByShortID(ctx context.Context, shortID string) (*entities.Link, error) {
	rows, err := r.db.QueryContext(ctx, linkWithVisitsQuery+`
		WHERE l.short_id = $1
		ORDER BY v.visited_at ASC, v.id ASC
	`, shortID)
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	defer rows.Close()

	links, err := scanLinksWithVisits(rows)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrNotFound
	}

	return links[0], nil
}

// RecordVisit appends a visit and returns the redirect target in one statement
func (r *linkRepository) RecordVisit(ctx context.Context, shortID string, at time.Time) (string, error) {
	query := `
		WITH link AS (
			SELECT id, redirect_url FROM links WHERE short_id = $1
		), visit AS (
			INSERT INTO link_visits (link_id, visited_at)
			SELECT id, $2 FROM link
		)
		SELECT redirect_url FROM link
	`

	var redirectURL string
	err := r.db.QueryRowContext(ctx, query, shortID, at.UTC()).Scan(&redirectURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to record visit: %w", err)
	}

	return redirectURL, nil
}

// scanLinksWithVisits folds the joined rows (one per visit) into links.
// Rows of the same link must be adjacent.
func scanLinksWithVisits(rows *sql.Rows) ([]*entities.Link, error) {
	links := []*entities.Link{}
	var current *entities.Link

	for rows.Next() {
		var (
			link      entities.Link
			visitedAt sql.NullTime
		)
		err := rows.Scan(
			&link.ID,
			&link.ShortID,
			&link.RedirectURL,
			&link.QRCode,
			&link.CreatedBy,
			&link.CreatedAt,
			&visitedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}

		if current == nil || current.ID != link.ID {
			link.VisitHistory = []entities.Visit{}
			current = &link
			links = append(links, current)
		}
		if visitedAt.Valid {
			current.VisitHistory = append(current.VisitHistory, entities.VisitAt(visitedAt.Time))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}
