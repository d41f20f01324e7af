// Package users keeps the registered customers and administrators. It
// sits outside the transaction core but shares the same record store.
package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"storefront-engine/internal/models"
	"storefront-engine/internal/recordstore"
	"storefront-engine/internal/util"

	"go.uber.org/zap"
)

const idFloor = 1000

// Service is the user registry. Customer ids are C<counter>, admin ids
// A<counter>, sharing one counter seeded above any persisted maximum.
type Service struct {
	store  recordstore.Store
	logger *zap.Logger

	mu      sync.Mutex
	users   []*models.User
	byID    map[string]*models.User
	byEmail map[string]*models.User
	seq     int
}

// New loads the registry. An empty users collection gets a default
// administrator so the storefront is never left without one.
func New(ctx context.Context, store recordstore.Store) (*Service, error) {
	s := &Service{
		store:   store,
		logger:  util.GetLogger(),
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
		seq:     idFloor,
	}

	lines, err := store.ReadAll(ctx, recordstore.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	for _, line := range lines {
		u, err := models.ParseUser(line)
		if err != nil {
			s.logger.Warn("Skipping malformed user record",
				zap.String("line", line), zap.Error(err))
			continue
		}
		s.insert(u)
	}

	if len(s.users) == 0 {
		s.insert(models.User{
			ID:         "A1000",
			Name:       "Admin",
			Email:      "admin@shop.com",
			Password:   "admin123",
			Phone:      "0000000000",
			Role:       models.RoleAdmin,
			AdminLevel: "SUPER",
		})
		s.persistLocked(ctx)
		s.logger.Info("Seeded default administrator")
	}

	s.logger.Info("User registry loaded", zap.Int("users", len(s.users)))
	return s, nil
}

func (s *Service) insert(u models.User) {
	k := strings.ToUpper(u.ID)
	if _, exists := s.byID[k]; exists {
		return
	}
	stored := u
	s.users = append(s.users, &stored)
	s.byID[k] = &stored
	s.byEmail[strings.ToLower(u.Email)] = &stored
	if n := idNumber(u.ID); n > s.seq {
		s.seq = n
	}
}

func idNumber(id string) int {
	upper := strings.ToUpper(id)
	if len(upper) < 2 || (upper[0] != 'C' && upper[0] != 'A') {
		return 0
	}
	n, err := strconv.Atoi(upper[1:])
	if err != nil {
		return 0
	}
	return n
}

func (s *Service) persistLocked(ctx context.Context) {
	lines := make([]string, 0, len(s.users))
	for _, u := range s.users {
		lines = append(lines, models.EncodeUser(*u))
	}
	if err := s.store.WriteAll(ctx, recordstore.CollectionUsers, lines); err != nil {
		util.PersistenceWriteFailures.WithLabelValues(recordstore.CollectionUsers).Inc()
		s.logger.Warn("Failed to persist users", zap.Error(err))
	}
}

// RegisterCustomer creates a customer account. The email must not be in
// use by any existing user.
func (s *Service) RegisterCustomer(ctx context.Context, name, email, password, phone, address string) (models.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, fmt.Errorf("name, email and password are required: %w", models.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[strings.ToLower(email)]; taken {
		return models.User{}, fmt.Errorf("email %s already registered: %w", email, models.ErrInvalidArgument)
	}

	s.seq++
	u := models.User{
		ID:       fmt.Sprintf("C%d", s.seq),
		Name:     name,
		Email:    email,
		Password: password,
		Phone:    phone,
		Role:     models.RoleCustomer,
		Address:  address,
	}
	s.insert(u)

	s.persistLocked(ctx)
	s.logger.Info("Customer registered", zap.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks credentials by email.
func (s *Service) Authenticate(email, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	if u.Password != password {
		return models.User{}, fmt.Errorf("bad credentials for %s: %w", email, models.ErrUnauthorized)
	}
	return *u, nil
}

// Get returns the user with the given id.
func (s *Service) Get(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[strings.ToUpper(id)]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return *u, nil
}

// IsAdmin reports whether the given user id belongs to an administrator.
func (s *Service) IsAdmin(id string) bool {
	u, err := s.Get(id)
	return err == nil && u.Role == models.RoleAdmin
}
