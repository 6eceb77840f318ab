// AngelaMos | 2026
// converter.go

// Package rates converts between the reference currency holders think
// in and the settlement unit the engine actually moves. Where the rate
// comes from is someone else's problem: an external oracle keeps the
// current value in Redis, and an expired key simply means no fresh
// rate exists.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

const conversionScale = 8

// Converter translates amounts using the current exchange rate. The
// rate is settlement units per one reference unit.
type Converter interface {
	ToSettlement(
		ctx context.Context,
		reference decimal.Decimal,
	) (decimal.Decimal, error)
	ToReference(
		ctx context.Context,
		settlement decimal.Decimal,
	) (decimal.Decimal, error)
}

type redisConverter struct {
	client *redis.Client
	key    string
}

// NewRedisConverter reads the oracle-maintained rate from
// <keyPrefix>:<reference>:<settlement> (currencies lowercased).
func NewRedisConverter(
	client *redis.Client,
	keyPrefix, referenceCurrency, settlementCurrency string,
) Converter {
	key := fmt.Sprintf(
		"%s:%s:%s",
		keyPrefix,
		strings.ToLower(referenceCurrency),
		strings.ToLower(settlementCurrency),
	)
	return &redisConverter{client: client, key: key}
}

func (c *redisConverter) rate(ctx context.Context) (decimal.Decimal, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, fmt.Errorf(
			"no fresh rate at %s: %w",
			c.key,
			core.ErrRateUnavailable,
		)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf(
			"read rate: %v: %w",
			err,
			core.ErrRateUnavailable,
		)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf(
			"malformed rate %q at %s: %w",
			raw,
			c.key,
			core.ErrRateUnavailable,
		)
	}

	return rate, nil
}

func (c *redisConverter) ToSettlement(
	ctx context.Context,
	reference decimal.Decimal,
) (decimal.Decimal, error) {
	rate, err := c.rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return reference.Mul(rate).Round(conversionScale), nil
}

func (c *redisConverter) ToReference(
	ctx context.Context,
	settlement decimal.Decimal,
) (decimal.Decimal, error) {
	rate, err := c.rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return settlement.DivRound(rate, conversionScale), nil
}

type staticConverter struct {
	rate decimal.Decimal
}

// NewStaticConverter pins the exchange rate to a fixed value.
// Development and tests only.
func NewStaticConverter(rate string) (Converter, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse static rate %q: %w", rate, err)
	}
	if !parsed.IsPositive() {
		return nil, fmt.Errorf("static rate %q must be positive", rate)
	}
	return &staticConverter{rate: parsed}, nil
}

func (c *staticConverter) ToSettlement(
	_ context.Context,
	reference decimal.Decimal,
) (decimal.Decimal, error) {
	return reference.Mul(c.rate).Round(conversionScale), nil
}

func (c *staticConverter) ToReference(
	_ context.Context,
	settlement decimal.Decimal,
) (decimal.Decimal, error) {
	return settlement.DivRound(c.rate, conversionScale), nil
}
