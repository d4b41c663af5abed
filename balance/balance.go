// Package balance defines the balance-service collaborator the engine
// debits and credits through, plus reference implementations: an
// in-memory store for tests and a Redis-backed one.
//
// Every mutation carries a caller-supplied idempotency key. A retried
// call with a key the service has already applied is a no-op success,
// which is what makes settlement retries safe.
package balance

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Debit when the owner cannot cover
// the amount. The engine propagates it unchanged.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Service is the external balance authority. Implementations must apply
// each idempotency key at most once and must be safe for concurrent use.
type Service interface {
	Balance(ctx context.Context, owner string) (decimal.Decimal, error)
	Debit(ctx context.Context, owner string, amount decimal.Decimal, idemKey string) error
	Credit(ctx context.Context, owner string, amount decimal.Decimal, idemKey string) error
}

// Memory is a mutex-guarded in-memory Service.
type Memory struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	applied  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]decimal.Decimal),
		applied:  make(map[string]bool),
	}
}

// Deposit seeds an owner's balance outside the idempotency discipline.
func (m *Memory) Deposit(owner string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner] = m.balances[owner].Add(amount)
}

func (m *Memory) Balance(_ context.Context, owner string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner], nil
}

func (m *Memory) Debit(_ context.Context, owner string, amount decimal.Decimal, idemKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[idemKey] {
		return nil
	}
	if m.balances[owner].LessThan(amount) {
		return ErrInsufficientFunds
	}
	m.balances[owner] = m.balances[owner].Sub(amount)
	m.applied[idemKey] = true
	return nil
}

func (m *Memory) Credit(_ context.Context, owner string, amount decimal.Decimal, idemKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[idemKey] {
		return nil
	}
	m.balances[owner] = m.balances[owner].Add(amount)
	m.applied[idemKey] = true
	return nil
}

// AppliedKeys reports how many distinct idempotency keys have been
// applied; tests use it to prove exactly-once behaviour.
func (m *Memory) AppliedKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}
