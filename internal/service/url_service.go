package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/qrcode"
	"tinyurl-be/internal/repository"
)

// ShortIDLength is the length of generated short IDs
const ShortIDLength = 8

// URLService defines the interface for short link business logic
type URLService interface {
	CreateLink(ctx context.Context, targetURL string, ownerID *string) (*models.CreateURLResponse, error)
	ResolveLink(ctx context.Context, shortID string) (string, error)
	ListLinks(ctx context.Context) ([]*entities.Link, error)
	LinkQRCode(ctx context.Context, shortID string) ([]byte, error)
}

type urlService struct {
	links  repository.LinkRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewURLService creates a new URL service
func NewURLService(links repository.LinkRepository, logger *slog.Logger) URLService {
	return &urlService{
		links:  links,
		logger: logger,
		now:    time.Now,
	}
}

// CreateLink stores a new short link and returns its ID and QR code
func (s *urlService) CreateLink(ctx context.Context, targetURL string, ownerID *string) (*models.CreateURLResponse, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, apperrors.New(apperrors.BadRequest, "url is required")
	}

	shortID, err := gonanoid.New(ShortIDLength)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate short id", err)
	}

	qr, err := qrcode.DataURL(targetURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate QR code", err)
	}

	link, err := s.links.Create(ctx, shortID, targetURL, qr, ownerID)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.New(apperrors.Conflict, "short id already in use, please retry")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to create short url", err)
	}

	s.logger.InfoContext(ctx, "short url created", "short_id", link.ShortID)

	return &models.CreateURLResponse{ID: link.ShortID, QRCode: link.QRCode}, nil
}

// ResolveLink records a visit and returns the redirect target
func (s *urlService) ResolveLink(ctx context.Context, shortID string) (string, error) {
	target, err := s.links.RecordVisit(ctx, shortID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperrors.New(apperrors.NotFound, "Short URL not found")
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.Internal, "failed to resolve short url", err)
	}
	return target, nil
}

// ListLinks returns all links with their visit histories
func (s *urlService) ListLinks(ctx context.Context) ([]*entities.Link, error) {
	links, err := s.links.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to list short urls", err)
	}
	if len(links) == 0 {
		return nil, apperrors.New(apperrors.NotFound, "No URLs found")
	}
	return links, nil
}

// LinkQRCode renders the link target as a PNG
func (s *urlService) LinkQRCode(ctx context.Context, shortID string) ([]byte, error) {
	link, err := s.links.FindByShortID(ctx, shortID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.NotFound, "Short URL not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to load short url", err)
	}

	png, err := qrcode.PNG(link.RedirectURL, qrcode.DefaultSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "failed to generate QR code", err)
	}
	return png, nil
}
