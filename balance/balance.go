// Package balance defines the external points-balance collaborator.
//
// The engine is the sole authorized caller of Mint and Burn; the balance
// ledger itself lives outside this module. A Memory implementation is
// included for tests and simple deployments.
package balance

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/incentive/types"
)

// ErrInsufficientBalance is returned by Burn when the user's balance does
// not cover the requested amount. No partial burn occurs.
var ErrInsufficientBalance = errors.New("balance: insufficient balance")

// Service is the fungible points-balance primitive.
type Service interface {
	Mint(ctx context.Context, user string, amount types.Points) error
	Burn(ctx context.Context, user string, amount types.Points) error
	BalanceOf(ctx context.Context, user string) (types.Points, error)
}

// Memory is a mutex-guarded in-memory Service.
type Memory struct {
	mu       sync.RWMutex
	balances map[string]types.Points
}

// NewMemory creates an empty in-memory balance service.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]types.Points)}
}

// Mint implements Service.
func (m *Memory) Mint(_ context.Context, user string, amount types.Points) error {
	if amount.IsNegative() {
		return errors.New("balance: negative mint")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[user] += amount
	return nil
}

// Burn implements Service. Fails whole if the balance is short.
func (m *Memory) Burn(_ context.Context, user string, amount types.Points) error {
	if amount.IsNegative() {
		return errors.New("balance: negative burn")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[user] < amount {
		return ErrInsufficientBalance
	}
	m.balances[user] -= amount
	return nil
}

// BalanceOf implements Service.
func (m *Memory) BalanceOf(_ context.Context, user string) (types.Points, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.balances[user], nil
}
