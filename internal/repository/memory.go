package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tinyurl-be/internal/entities"
)

// MemoryUserRepository keeps users in process memory. It backs local
// development when DATABASE_URL is unset, and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*entities.User // by ID
}

// NewMemoryUserRepository creates an empty in-memory user store
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*entities.User)}
}

func (m *MemoryUserRepository) Create(ctx context.Context, username, email string, passwordHash *string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, ErrDuplicate
		}
	}

	now := time.Now().UTC()
	user := &entities.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: cloneString(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[user.ID] = user

	return copyUser(user), nil
}

func (m *MemoryUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (m *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = &passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryUserRepository) SetRefreshToken(ctx context.Context, id string, refreshToken *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = cloneString(refreshToken)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryLinkRepository keeps links in process memory
type MemoryLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*entities.Link // by short ID
}

// NewMemoryLinkRepository creates an empty in-memory link store
func NewMemoryLinkRepository() *MemoryLinkRepository {
	return &MemoryLinkRepository{links: make(map[string]*entities.Link)}
}

func (m *MemoryLinkRepository) Create(ctx context.Context, shortID, redirectURL, qrcode string, createdBy *string) (*entities.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[shortID]; exists {
		return nil, ErrDuplicate
	}

	link := &entities.Link{
		ID:           uuid.NewString(),
		ShortID:      shortID,
		RedirectURL:  redirectURL,
		QRCode:       qrcode,
		VisitHistory: []entities.Visit{},
		CreatedBy:    cloneString(createdBy),
		CreatedAt:    time.Now().UTC(),
	}
	m.links[shortID] = link

	return copyLink(link), nil
}

func (m *MemoryLinkRepository) FindAll(ctx context.Context) ([]*entities.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links := make([]*entities.Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, copyLink(l))
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}

func (m *MemoryLinkRepository) FindByShortID(ctx context.Context, shortID string) (*entities.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[shortID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLink(link), nil
}

func (m *MemoryLinkRepository) RecordVisit(ctx context.Context, shortID string, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[shortID]
	if !ok {
		return "", ErrNotFound
	}
	link.VisitHistory = append(link.VisitHistory, entities.VisitAt(at))
	return link.RedirectURL, nil
}

// Copies keep callers from mutating stored records outside the lock.

func copyUser(u *entities.User) *entities.User {
	cp := *u
	cp.PasswordHash = cloneString(u.PasswordHash)
	cp.RefreshToken = cloneString(u.RefreshToken)
	return &cp
}

func copyLink(l *entities.Link) *entities.Link {
	cp := *l
	cp.VisitHistory = append([]entities.Visit{}, l.VisitHistory...)
	cp.CreatedBy = cloneString(l.CreatedBy)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var (
	_ UserRepository = (*MemoryUserRepository)(nil)
	_ LinkRepository = (*MemoryLinkRepository)(nil)
)
