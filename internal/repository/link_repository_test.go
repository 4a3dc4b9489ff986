package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkRowColumns = []string{"id", "short_id", "redirect_url", "qrcode", "created_by", "created_at", "visited_at"}

func TestLinkRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepository(db)
	owner := "u-1"
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO links \(short_id, redirect_url, qrcode, created_by\)`).
		WithArgs("abcd1234", "https://example.com", "data:image/png;base64,xx", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "short_id", "redirect_url", "qrcode", "created_by", "created_at"}).
			AddRow("l-1", "abcd1234", "https://example.com", "data:image/png;base64,xx", owner, now))

	link, err := repo.Create(context.Background(), "abcd1234", "https://example.com", "data:image/png;base64,xx", &owner)
	require.NoError(t, err)
	assert.Equal(t, "abcd1234", link.ShortID)
	assert.NotNil(t, link.VisitHistory)
	assert.Empty(t, link.VisitHistory)
	require.NotNil(t, link.CreatedBy)
	assert.Equal(t, owner, *link.CreatedBy)
}

func TestLinkRepository_FindAll_GroupsVisits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepository(db)
	created := time.Now().Add(-time.Hour)
	v1 := time.UnixMilli(1_700_000_000_000)
	v2 := time.UnixMilli(1_700_000_005_000)

	mock.ExpectQuery(`(?s)FROM links l\s+LEFT JOIN link_visits v.*ORDER BY`).
		WillReturnRows(sqlmock.NewRows(linkRowColumns).
			AddRow("l-1", "aaaa1111", "https://a.example", "qa", "u-1", created, v1).
			AddRow("l-1", "aaaa1111", "https://a.example", "qa", "u-1", created, v2).
			AddRow("l-2", "bbbb2222", "https://b.example", "qb", nil, created, nil))

	links, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Len(t, links[0].VisitHistory, 2)
	assert.Equal(t, v1.UnixMilli(), links[0].VisitHistory[0].Timestamp)
	assert.Equal(t, v2.UnixMilli(), links[0].VisitHistory[1].Timestamp)

	assert.Equal(t, "bbbb2222", links[1].ShortID)
	assert.NotNil(t, links[1].VisitHistory)
	assert.Empty(t, links[1].VisitHistory)
	assert.Nil(t, links[1].CreatedBy)
}

func TestLinkRepository_FindByShortID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(`(?s)WHERE l.short_id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(linkRowColumns))

	_, err := repo.FindByShortID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkRepository_RecordVisit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepository(db)
	at := time.Now()

	mock.ExpectQuery(`(?s)WITH link AS .*INSERT INTO link_visits \(link_id, visited_at\).*SELECT redirect_url FROM link`).
		WithArgs("abcd1234", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"redirect_url"}).AddRow("https://example.com"))

	target, err := repo.RecordVisit(context.Background(), "abcd1234", at)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepository_RecordVisit_Unknown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery(`WITH link AS`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RecordVisit(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}
