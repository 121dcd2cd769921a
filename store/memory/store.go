package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/incentive"
	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
)

type Store struct {
	mu sync.RWMutex

	// Account storage, keyed by user
	accounts map[string]*account.Account

	// Order lock storage, keyed by order ID
	orderLocks map[string]*accrual.OrderLock

	// Consumption history, append-only per user
	consumptions map[string][]*consumption.Record

	// Cooldown stamps, keyed by user/service
	cooldowns map[string]time.Time
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*account.Account),
		orderLocks:   make(map[string]*accrual.OrderLock),
		consumptions: make(map[string][]*consumption.Record),
		cooldowns:    make(map[string]time.Time),
	}
}

// Account Store implementation
func (s *Store) GetAccount(_ context.Context, user string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[user]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, incentive.ErrNotFound
}

func (s *Store) PutAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.accounts[a.User] = &cp
	return nil
}

func (s *Store) ListAccounts(_ context.Context, opts account.ListOpts) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if opts.MinLevel == 0 || a.Level >= opts.MinLevel {
			cp := *a
			result = append(result, &cp)
		}
	}

	// Map iteration is unordered; pin a stable order for paging.
	sort.Slice(result, func(i, j int) bool { return result[i].User < result[j].User })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Order lock Store implementation
func (s *Store) CreateOrderLock(_ context.Context, l *accrual.OrderLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orderLocks[l.OrderID]; exists {
		return incentive.ErrAlreadyExists
	}
	cp := *l
	s.orderLocks[l.OrderID] = &cp
	return nil
}

func (s *Store) GetOrderLock(_ context.Context, orderID string) (*accrual.OrderLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.orderLocks[orderID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, incentive.ErrNotFound
}

func (s *Store) DeleteOrderLock(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orderLocks[orderID]; !exists {
		return incentive.ErrNotFound
	}
	delete(s.orderLocks, orderID)
	return nil
}

func (s *Store) ListOrderLocks(_ context.Context, user string) ([]*accrual.OrderLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*accrual.OrderLock, 0)
	for _, l := range s.orderLocks {
		if l.Borrower == user {
			cp := *l
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	return result, nil
}

// Consumption Store implementation
func (s *Store) AppendConsumption(_ context.Context, r *consumption.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.consumptions[r.User] = append(s.consumptions[r.User], &cp)
	return nil
}

func (s *Store) ListConsumptions(_ context.Context, user string, opts consumption.ListOpts) ([]*consumption.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*consumption.Record, 0)
	for _, r := range s.consumptions[user] {
		if opts.Service != nil && r.Service != *opts.Service {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		if !opts.Start.IsZero() && r.CreatedAt.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !r.CreatedAt.Before(opts.End) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	// Newest first
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) ActiveConsumptions(_ context.Context, user string, now time.Time) ([]*consumption.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*consumption.Record, 0)
	for _, r := range s.consumptions[user] {
		if r.ActiveAt(now) {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *Store) GetCooldownStamp(_ context.Context, user string, service catalog.ServiceType) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if at, ok := s.cooldowns[cooldownKey(user, service)]; ok {
		return at, nil
	}
	return time.Time{}, incentive.ErrNotFound
}

func (s *Store) SetCooldownStamp(_ context.Context, user string, service catalog.ServiceType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cooldowns[cooldownKey(user, service)] = at
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

func cooldownKey(user string, service catalog.ServiceType) string {
	return fmt.Sprintf("%s:%d", user, service)
}
