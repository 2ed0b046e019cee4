package bank

import (
	"context"
	"sync"
)

// MemoryBank keeps balances in process memory. It backs tests and
// single-node development deployments where Redis is not available.
type MemoryBank struct {
	mu       sync.Mutex
	escrow   uint64
	balances map[string]uint64
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]uint64)}
}

func (b *MemoryBank) Deposit(ctx context.Context, account string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.escrow += amount
	return nil
}

func (b *MemoryBank) Payout(ctx context.Context, account string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount > b.escrow {
		return ErrInsufficientEscrow
	}
	b.escrow -= amount
	b.balances[account] += amount
	return nil
}

// Balance returns the settled balance of an account.
func (b *MemoryBank) Balance(ctx context.Context, account string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}

// Escrow returns the undistributed pooled funds.
func (b *MemoryBank) Escrow(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.escrow, nil
}
