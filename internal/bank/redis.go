package bank

import (
	"context"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// RedisBank keeps balances as fields of a single Redis hash, with the
// escrow field holding undistributed fees.
type RedisBank struct {
	client *redis.Client
	key    string
}

func NewRedisBank(client *redis.Client, key string) *RedisBank {
	return &RedisBank{client: client, key: key}
}

func (b *RedisBank) Deposit(ctx context.Context, account string, amount uint64) error {
	if b.key == "" {
		return fmt.Errorf("balance hash key is not configured")
	}
	if err := b.client.HIncrBy(ctx, b.key, escrowAccount, int64(amount)).Err(); err != nil {
		return fmt.Errorf("redis HINCRBY %s: %w", b.key, err)
	}
	return nil
}

// Payout debits escrow and credits the winner in one transactional
// pipeline, so the two balances never diverge.
func (b *RedisBank) Payout(ctx context.Context, account string, amount uint64) error {
	if b.key == "" {
		return fmt.Errorf("balance hash key is not configured")
	}
	escrow, err := b.Escrow(ctx)
	if err != nil {
		return err
	}
	if amount > escrow {
		return ErrInsufficientEscrow
	}

	pipe := b.client.TxPipeline()
	pipe.HIncrBy(ctx, b.key, escrowAccount, -int64(amount))
	pipe.HIncrBy(ctx, b.key, account, int64(amount))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis payout pipeline: %w", err)
	}
	return nil
}

// Balance returns the settled balance of an account.
func (b *RedisBank) Balance(ctx context.Context, account string) (uint64, error) {
	return b.field(ctx, account)
}

// Escrow returns the undistributed pooled funds.
func (b *RedisBank) Escrow(ctx context.Context) (uint64, error) {
	return b.field(ctx, escrowAccount)
}

func (b *RedisBank) field(ctx context.Context, account string) (uint64, error) {
	raw, err := b.client.HGet(ctx, b.key, account).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis HGET %s %s: %w", b.key, account, err)
	}
	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance of %s: %w", account, err)
	}
	return val, nil
}
