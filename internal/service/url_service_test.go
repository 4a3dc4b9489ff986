package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/logging"
	"tinyurl-be/internal/mocks"
	"tinyurl-be/internal/repository"
)

func TestURLService_CreateLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	links := mocks.NewMockLinkRepository(ctrl)
	svc := NewURLService(links, logging.Discard())
	owner := "u-1"

	links.EXPECT().
		Create(gomock.Any(), gomock.Any(), "https://example.com", gomock.Any(), &owner).
		DoAndReturn(func(_ context.Context, shortID, target, qr string, createdBy *string) (*entities.Link, error) {
			return &entities.Link{ShortID: shortID, RedirectURL: target, QRCode: qr, CreatedBy: createdBy}, nil
		})

	resp, err := svc.CreateLink(context.Background(), " https://example.com ", &owner)
	require.NoError(t, err)
	assert.Len(t, resp.ID, ShortIDLength)
	assert.True(t, strings.HasPrefix(resp.QRCode, "data:image/png;base64,"))
}

func TestURLService_CreateLink_Blank(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewURLService(mocks.NewMockLinkRepository(ctrl), logging.Discard())

	_, err := svc.CreateLink(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestURLService_CreateLink_Collision(t *testing.T) {
	ctrl := gomock.NewController(t)
	links := mocks.NewMockLinkRepository(ctrl)
	svc := NewURLService(links, logging.Discard())

	links.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, repository.ErrDuplicate)

	_, err := svc.CreateLink(context.Background(), "https://example.com", nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestURLService_ResolveLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	links := mocks.NewMockLinkRepository(ctrl)
	svc := NewURLService(links, logging.Discard()).(*urlService)
	now := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return now }

	links.EXPECT().RecordVisit(gomock.Any(), "abcd1234", now).Return("https://example.com", nil)
	links.EXPECT().RecordVisit(gomock.Any(), "missing", now).Return("", repository.ErrNotFound)
	links.EXPECT().RecordVisit(gomock.Any(), "broken", now).Return("", errors.New("db down"))

	target, err := svc.ResolveLink(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	_, err = svc.ResolveLink(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.ResolveLink(context.Background(), "broken")
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestURLService_ListLinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	links := mocks.NewMockLinkRepository(ctrl)
	svc := NewURLService(links, logging.Discard())

	links.EXPECT().FindAll(gomock.Any()).Return([]*entities.Link{}, nil)
	_, err := svc.ListLinks(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	links.EXPECT().FindAll(gomock.Any()).Return([]*entities.Link{{ShortID: "abcd1234"}}, nil)
	got, err := svc.ListLinks(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestURLService_LinkQRCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	links := mocks.NewMockLinkRepository(ctrl)
	svc := NewURLService(links, logging.Discard())

	links.EXPECT().FindByShortID(gomock.Any(), "abcd1234").
		Return(&entities.Link{ShortID: "abcd1234", RedirectURL: "https://example.com"}, nil)
	links.EXPECT().FindByShortID(gomock.Any(), "missing").Return(nil, repository.ErrNotFound)

	png, err := svc.LinkQRCode(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))

	_, err = svc.LinkQRCode(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
