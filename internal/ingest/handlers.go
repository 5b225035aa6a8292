package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jobScope/internal/codec"
	"jobScope/internal/jobstate"
	"jobScope/internal/model"
)

func (in *Ingestor) applyJobEvent(ctx context.Context, b *batch, log model.LogRecord, ev codec.JobEventLog, result *Result) error {
	payload, err := codec.DecodeJobPayload(ev.Type, ev.Data)
	if err != nil {
		return in.decodeFailure(log, &ev, err, result)
	}

	job, err := b.job(ctx, ev.JobID)
	if err != nil {
		return err
	}
	next, effects, err := jobstate.Apply(job, ev, payload)
	if err != nil {
		return fmt.Errorf("log %s: %w", log.ID(), err)
	}
	for _, effect := range effects {
		if err := in.applyEffect(ctx, b, log, ev, effect); err != nil {
			return err
		}
	}
	b.jobs[ev.JobID] = next

	b.events = append(b.events, model.JobEvent{
		ID:          log.ID(),
		JobID:       ev.JobID,
		Type:        ev.Type,
		Address:     ev.Address,
		Data:        append([]byte(nil), ev.Data...),
		Timestamp:   ev.Timestamp,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.LogIndex,
		Details:     payload.Details,
	})
	return nil
}

func (in *Ingestor) applyEffect(ctx context.Context, b *batch, log model.LogRecord, ev codec.JobEventLog, effect jobstate.Effect) error {
	if effect.TargetsArbitrator() {
		arbitrator, err := b.arbitrator(ctx, effect.Target)
		if err != nil {
			return err
		}
		if arbitrator == nil {
			if effect.Kind != jobstate.EffectArbitrationRefused {
				return &MissingEntityError{Entity: "arbitrator", ID: effect.Target.Hex(), LogID: log.ID()}
			}
			// Refusals are counted on the cleared slot, which nobody registers.
			// A strict lookup would abort here; see the package doc.
			arbitrator = &model.Arbitrator{Address: effect.Target}
			b.arbitrators[effect.Target] = arbitrator
		}
		if effect.Kind == jobstate.EffectArbitrationSettled {
			arbitrator.SettledCount++
		} else {
			arbitrator.RefusedCount++
		}
		return nil
	}

	user, err := b.user(ctx, effect.Target)
	if err != nil {
		return err
	}
	if user == nil {
		return &MissingEntityError{Entity: "user", ID: effect.Target.Hex(), LogID: log.ID()}
	}
	switch effect.Kind {
	case jobstate.EffectReputationUp:
		user.ReputationUp++
	case jobstate.EffectReputationDown:
		user.ReputationDown++
	case jobstate.EffectRating:
		user.AddRating(effect.Rating)
		b.reviews = append(b.reviews, model.Review{
			ID:        log.ID(),
			User:      effect.Target,
			Reviewer:  effect.Reviewer,
			JobID:     ev.JobID,
			Rating:    effect.Rating,
			Text:      effect.Review,
			Timestamp: ev.Timestamp,
		})
	}
	return nil
}

// applyRegistry handles user and arbitrator registration events. Registering
// an existing address refreshes its key and profile but keeps the counters,
// which are derived from job events.
func (in *Ingestor) applyRegistry(ctx context.Context, b *batch, log model.LogRecord, event codec.Event) error {
	switch ev := event.(type) {
	case codec.UserRegistered:
		user, err := b.user(ctx, ev.Addr)
		if err != nil {
			return err
		}
		if user == nil {
			user = &model.User{Address: ev.Addr}
			b.users[ev.Addr] = user
		}
		user.PublicKey = append([]byte(nil), ev.Pubkey...)
		user.Name, user.Bio, user.Avatar = ev.Name, ev.Bio, ev.Avatar
	case codec.UserUpdated:
		user, err := b.user(ctx, ev.Addr)
		if err != nil {
			return err
		}
		if user == nil {
			return &MissingEntityError{Entity: "user", ID: ev.Addr.Hex(), LogID: log.ID()}
		}
		user.Name, user.Bio, user.Avatar = ev.Name, ev.Bio, ev.Avatar
	case codec.ArbitratorRegistered:
		arbitrator, err := b.arbitrator(ctx, ev.Addr)
		if err != nil {
			return err
		}
		if arbitrator == nil {
			arbitrator = &model.Arbitrator{Address: ev.Addr}
			b.arbitrators[ev.Addr] = arbitrator
		}
		arbitrator.PublicKey = append([]byte(nil), ev.Pubkey...)
		arbitrator.Name, arbitrator.Bio, arbitrator.Avatar = ev.Name, ev.Bio, ev.Avatar
		arbitrator.Fee = ev.Fee
	case codec.ArbitratorUpdated:
		arbitrator, err := b.arbitrator(ctx, ev.Addr)
		if err != nil {
			return err
		}
		if arbitrator == nil {
			return &MissingEntityError{Entity: "arbitrator", ID: ev.Addr.Hex(), LogID: log.ID()}
		}
		arbitrator.Name, arbitrator.Bio, arbitrator.Avatar = ev.Name, ev.Bio, ev.Avatar
	}
	in.logger.Debug("registry updated", zap.String("log", log.ID()), zap.Stringer("kind", event.Kind()))
	return nil
}

// applyMarketplace overwrites the fields carried by an administrative event.
func applyMarketplace(m *model.Marketplace, event codec.Event) {
	switch ev := event.(type) {
	case codec.Initialized:
		m.Version = ev.Version
	case codec.VersionChanged:
		m.Version = ev.Version
	case codec.MarketplaceDataAddressChanged:
		m.MarketplaceData = ev.MarketplaceData
	case codec.TreasuryAddressChanged:
		m.TreasuryAddress = ev.Treasury
	case codec.UnicrowAddressesChanged:
		m.UnicrowAddress = ev.Unicrow
		m.UnicrowDisputeAddress = ev.UnicrowDispute
		m.UnicrowArbitratorAddress = ev.UnicrowArbitrator
	case codec.UnicrowMarketplaceFeeChanged:
		m.UnicrowMarketplaceFee = ev.Fee
	case codec.Paused:
		m.Paused = true
	case codec.Unpaused:
		m.Paused = false
	case codec.OwnershipTransferred:
		m.Owner = ev.NewOwner
	}
}
