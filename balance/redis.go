package balance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Redis is a Service backed by Redis. Balances are stored as integer
// micro-units (6 fractional digits) so no float arithmetic ever touches
// money, and each mutation runs as a Lua script that applies the amount
// and claims the idempotency key atomically.
type Redis struct {
	client  *redis.Client
	prefix  string
	idemTTL time.Duration
}

const microDigits = 6

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "engine"
	}
	return &Redis{client: client, prefix: prefix, idemTTL: 7 * 24 * time.Hour}
}

func (r *Redis) balanceKey(owner string) string {
	return fmt.Sprintf("%s:balance:%s", r.prefix, owner)
}

func (r *Redis) idemKey(key string) string {
	return fmt.Sprintf("%s:idem:%s", r.prefix, key)
}

var debitScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[2]) == 1 then
		return "DUP"
	end
	local bal = tonumber(redis.call("GET", KEYS[1]) or "0")
	local amount = tonumber(ARGV[1])
	if bal < amount then
		return redis.error_reply("insufficient funds")
	end
	redis.call("SET", KEYS[1], bal - amount)
	redis.call("SET", KEYS[2], "1", "EX", tonumber(ARGV[2]))
	return "OK"
`)

var creditScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[2]) == 1 then
		return "DUP"
	end
	local bal = tonumber(redis.call("GET", KEYS[1]) or "0")
	redis.call("SET", KEYS[1], bal + tonumber(ARGV[1]))
	redis.call("SET", KEYS[2], "1", "EX", tonumber(ARGV[2]))
	return "OK"
`)

func (r *Redis) Balance(ctx context.Context, owner string) (decimal.Decimal, error) {
	raw, err := r.client.Get(ctx, r.balanceKey(owner)).Result()
	if err == redis.Nil {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	micros, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return micros.Shift(-microDigits), nil
}

func (r *Redis) Debit(ctx context.Context, owner string, amount decimal.Decimal, idemKey string) error {
	keys := []string{r.balanceKey(owner), r.idemKey(idemKey)}
	err := debitScript.Run(ctx, r.client, keys, micros(amount), int(r.idemTTL.Seconds())).Err()
	if err != nil && strings.Contains(err.Error(), "insufficient funds") {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("debit %s: %w", owner, err)
	}
	return nil
}

func (r *Redis) Credit(ctx context.Context, owner string, amount decimal.Decimal, idemKey string) error {
	keys := []string{r.balanceKey(owner), r.idemKey(idemKey)}
	if err := creditScript.Run(ctx, r.client, keys, micros(amount), int(r.idemTTL.Seconds())).Err(); err != nil {
		return fmt.Errorf("credit %s: %w", owner, err)
	}
	return nil
}

// Deposit seeds an owner's balance; operator-side, no idempotency key.
func (r *Redis) Deposit(ctx context.Context, owner string, amount decimal.Decimal) error {
	return r.client.IncrBy(ctx, r.balanceKey(owner), micros(amount)).Err()
}

func micros(amount decimal.Decimal) int64 {
	return amount.Shift(microDigits).IntPart()
}
