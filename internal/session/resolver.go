package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jobScope/internal/codec"
	"jobScope/internal/storage"
)

// ErrUnknownKey is returned when an address has no registered public key.
var ErrUnknownKey = errors.New("public key not registered")

// Resolver looks up the registered public key of an address.
type Resolver interface {
	PublicKey(ctx context.Context, addr common.Address) ([]byte, error)
}

// StoreResolver reads public keys from indexed users and arbitrators.
type StoreResolver struct {
	store storage.Gateway
}

func NewStoreResolver(store storage.Gateway) *StoreResolver {
	return &StoreResolver{store: store}
}

func (r *StoreResolver) PublicKey(ctx context.Context, addr common.Address) ([]byte, error) {
	user, err := r.store.FindUser(ctx, addr)
	switch {
	case err == nil && len(user.PublicKey) > 0:
		return user.PublicKey, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("find user %s: %w", addr.Hex(), err)
	}
	arbitrator, err := r.store.FindArbitrator(ctx, addr)
	switch {
	case err == nil && len(arbitrator.PublicKey) > 0:
		return arbitrator.PublicKey, nil
	case err == nil, errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", addr.Hex(), ErrUnknownKey)
	default:
		return nil, fmt.Errorf("find arbitrator %s: %w", addr.Hex(), err)
	}
}

// Caller performs a read-only contract call.
type Caller interface {
	Call(ctx context.Context, to common.Address, input []byte) ([]byte, error)
}

// ChainResolver reads public keys from the MarketplaceData contract.
type ChainResolver struct {
	caller   Caller
	contract common.Address
	limiter  *rate.Limiter
}

// NewChainResolver limits lookups to perSecond calls. A non-positive rate
// disables limiting.
func NewChainResolver(caller Caller, contract common.Address, perSecond float64) *ChainResolver {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &ChainResolver{caller: caller, contract: contract, limiter: rate.NewLimiter(limit, 1)}
}

func (r *ChainResolver) PublicKey(ctx context.Context, addr common.Address) ([]byte, error) {
	abiDef, err := codec.MarketplaceDataABI()
	if err != nil {
		return nil, err
	}
	input, err := abiDef.Pack("publicKeys", addr)
	if err != nil {
		return nil, fmt.Errorf("pack publicKeys: %w", err)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	output, err := r.caller.Call(ctx, r.contract, input)
	if err != nil {
		return nil, fmt.Errorf("call publicKeys(%s): %w", addr.Hex(), err)
	}
	values, err := abiDef.Unpack("publicKeys", output)
	if err != nil {
		return nil, fmt.Errorf("unpack publicKeys: %w", err)
	}
	key, ok := values[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("unpack publicKeys: unexpected %T", values[0])
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%s: %w", addr.Hex(), ErrUnknownKey)
	}
	return key, nil
}

// CachedResolver keeps resolved keys in Redis. Unknown keys are not cached so
// that a later registration is picked up.
type CachedResolver struct {
	client *redis.Client
	next   Resolver
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewCachedResolver(client *redis.Client, next Resolver, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{client: client, next: next, ttl: ttl, prefix: "pubkey:", logger: logger}
}

func (r *CachedResolver) PublicKey(ctx context.Context, addr common.Address) ([]byte, error) {
	key := r.prefix + addr.Hex()
	cached, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		r.logger.Warn("public key cache read failed", zap.String("address", addr.Hex()), zap.Error(err))
	}

	pub, err := r.next.PublicKey(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, key, pub, r.ttl).Err(); err != nil {
		r.logger.Warn("public key cache write failed", zap.String("address", addr.Hex()), zap.Error(err))
	}
	return pub, nil
}

// FirstOf tries each resolver in order and returns the first key found.
func FirstOf(resolvers ...Resolver) Resolver {
	return firstOf(resolvers)
}

type firstOf []Resolver

func (f firstOf) PublicKey(ctx context.Context, addr common.Address) ([]byte, error) {
	var errs []error
	for _, r := range f {
		pub, err := r.PublicKey(ctx, addr)
		if err == nil {
			return pub, nil
		}
		if !errors.Is(err, ErrUnknownKey) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("%s: %w", addr.Hex(), ErrUnknownKey)
}
