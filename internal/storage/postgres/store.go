package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobScope/internal/model"
	"jobScope/internal/storage"
)

// Store provides Postgres persistence for marketplace entities.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Gateway = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) FindMarketplace(ctx context.Context, id common.Address) (*model.Marketplace, error) {
	var (
		m                                                   model.Marketplace
		data, unicrow, dispute, arbitrator, treasury, owner string
		version                                             int64
		fee                                                 int32
	)
	row := s.pool.QueryRow(ctx, `
		SELECT marketplace_data, version, unicrow_address, unicrow_dispute_address, unicrow_arbitrator_address,
			treasury_address, unicrow_marketplace_fee, paused, owner
		FROM marketplace WHERE id=$1
	`, id.Hex())
	if err := row.Scan(&data, &version, &unicrow, &dispute, &arbitrator, &treasury, &fee, &m.Paused, &owner); err != nil {
		return nil, notFound(err)
	}
	m.ID = id
	m.MarketplaceData = common.HexToAddress(data)
	m.Version = uint64(version)
	m.UnicrowAddress = common.HexToAddress(unicrow)
	m.UnicrowDisputeAddress = common.HexToAddress(dispute)
	m.UnicrowArbitratorAddress = common.HexToAddress(arbitrator)
	m.TreasuryAddress = common.HexToAddress(treasury)
	m.UnicrowMarketplaceFee = uint16(fee)
	m.Owner = common.HexToAddress(owner)
	return &m, nil
}

func (s *Store) FindJob(ctx context.Context, id uint64) (*model.Job, error) {
	var (
		job                                             model.Job
		state                                           int16
		creator, worker, arbitrator, contentHash, token string
		resultHash, amount, collateral, escrow          string
		maxTime, timestamp                              int64
		rating                                          int32
		allowed                                         []string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT state, creator, worker, arbitrator, title, content_hash, multiple_applicants, tags, token,
			amount::text, max_time, delivery_method, collateral_owed::text, escrow_id::text, result_hash,
			rating, disputed, whitelist_workers, allowed_workers, timestamp
		FROM job WHERE id=$1
	`, int64(id))
	err := row.Scan(&state, &creator, &worker, &arbitrator, &job.Title, &contentHash, &job.MultipleApplicants,
		&job.Tags, &token, &amount, &maxTime, &job.DeliveryMethod, &collateral, &escrow, &resultHash,
		&rating, &job.Disputed, &job.WhitelistWorkers, &allowed, &timestamp)
	if err != nil {
		return nil, notFound(err)
	}

	job.ID = id
	job.State = model.JobState(state)
	job.Roles = model.JobRoles{
		Creator:    common.HexToAddress(creator),
		Worker:     common.HexToAddress(worker),
		Arbitrator: common.HexToAddress(arbitrator),
	}
	job.ContentHash = common.HexToHash(contentHash)
	job.Token = common.HexToAddress(token)
	job.MaxTime = uint32(maxTime)
	job.ResultHash = common.HexToHash(resultHash)
	job.Rating = uint16(rating)
	job.Timestamp = uint64(timestamp)
	if len(job.Tags) == 0 {
		job.Tags = nil
	}
	for _, addr := range allowed {
		job.AllowedWorkers = append(job.AllowedWorkers, common.HexToAddress(addr))
	}
	if job.Amount, err = parseNumeric("amount", amount); err != nil {
		return nil, err
	}
	if job.CollateralOwed, err = parseNumeric("collateral_owed", collateral); err != nil {
		return nil, err
	}
	if job.EscrowID, err = parseNumeric("escrow_id", escrow); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) FindUser(ctx context.Context, addr common.Address) (*model.User, error) {
	var (
		u                                 model.User
		up, down, average, reviews, total int64
	)
	row := s.pool.QueryRow(ctx, `
		SELECT public_key, name, bio, avatar, reputation_up, reputation_down, average_rating,
			number_of_reviews, rating_total
		FROM "user" WHERE address=$1
	`, addr.Hex())
	if err := row.Scan(&u.PublicKey, &u.Name, &u.Bio, &u.Avatar, &up, &down, &average, &reviews, &total); err != nil {
		return nil, notFound(err)
	}
	u.Address = addr
	u.ReputationUp = uint32(up)
	u.ReputationDown = uint32(down)
	u.AverageRating = uint32(average)
	u.NumberOfReviews = uint32(reviews)
	u.RatingTotal = uint64(total)
	return &u, nil
}

func (s *Store) FindArbitrator(ctx context.Context, addr common.Address) (*model.Arbitrator, error) {
	var (
		a                model.Arbitrator
		fee              int32
		settled, refused int64
	)
	row := s.pool.QueryRow(ctx, `
		SELECT public_key, name, bio, avatar, fee, settled_count, refused_count
		FROM arbitrator WHERE address=$1
	`, addr.Hex())
	if err := row.Scan(&a.PublicKey, &a.Name, &a.Bio, &a.Avatar, &fee, &settled, &refused); err != nil {
		return nil, notFound(err)
	}
	a.Address = addr
	a.Fee = uint16(fee)
	a.SettledCount = uint32(settled)
	a.RefusedCount = uint32(refused)
	return &a, nil
}

func (s *Store) JobEvents(ctx context.Context, jobID uint64) ([]model.JobEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, address, data, timestamp, block_number, log_index, details
		FROM job_event WHERE job_id=$1 ORDER BY id
	`, int64(jobID))
	if err != nil {
		return nil, fmt.Errorf("query job events: %w", err)
	}
	defer rows.Close()

	var out []model.JobEvent
	for rows.Next() {
		var (
			ev                         model.JobEvent
			eventType                  int16
			address                    string
			timestamp, block, logIndex int64
			details                    []byte
		)
		if err := rows.Scan(&ev.ID, &eventType, &address, &ev.Data, &timestamp, &block, &logIndex, &details); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		ev.JobID = jobID
		ev.Type = model.JobEventType(eventType)
		ev.Address = common.HexToAddress(address)
		ev.Timestamp = uint64(timestamp)
		ev.BlockNumber = uint64(block)
		ev.LogIndex = uint64(logIndex)
		if ev.Details, err = model.UnmarshalDetails(details); err != nil {
			return nil, fmt.Errorf("job event %s: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) Reviews(ctx context.Context, user common.Address) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, reviewer, job_id, rating, text, timestamp
		FROM review WHERE user_id=$1 ORDER BY id
	`, user.Hex())
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var (
			r                model.Review
			reviewer         string
			jobID, timestamp int64
			rating           int32
		)
		if err := rows.Scan(&r.ID, &reviewer, &jobID, &rating, &r.Text, &timestamp); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.User = user
		r.Reviewer = common.HexToAddress(reviewer)
		r.JobID = uint64(jobID)
		r.Rating = uint16(rating)
		r.Timestamp = uint64(timestamp)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadCursor returns the last committed log id for a stream.
func (s *Store) LoadCursor(ctx context.Context, stream string) (string, error) {
	if stream == "" {
		return "", fmt.Errorf("stream name required")
	}
	var logID string
	row := s.pool.QueryRow(ctx, `SELECT last_log_id FROM indexer_state WHERE name=$1`, stream)
	if err := row.Scan(&logID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return logID, nil
}

// Commit writes the set in one transaction, one batch per entity kind. Jobs
// are written before their events to satisfy the foreign key.
func (s *Store) Commit(ctx context.Context, set storage.WriteSet) error {
	if set.Empty() {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	steps := []struct {
		name  string
		batch *pgx.Batch
	}{
		{"marketplace", marketplaceBatch(set.Marketplaces)},
		{"user", userBatch(set.Users)},
		{"arbitrator", arbitratorBatch(set.Arbitrators)},
		{"job", jobBatch(set.Jobs)},
	}
	for _, step := range steps {
		if err := execBatch(ctx, tx, step.batch); err != nil {
			return fmt.Errorf("upsert %s: %w", step.name, err)
		}
	}
	events, err := jobEventBatch(set.JobEvents)
	if err != nil {
		return err
	}
	if err := execBatch(ctx, tx, events); err != nil {
		return fmt.Errorf("upsert job_event: %w", err)
	}
	if err := execBatch(ctx, tx, reviewBatch(set.Reviews)); err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	if set.Cursor != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO indexer_state (name, last_log_id, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE
			SET last_log_id = EXCLUDED.last_log_id, updated_at = now()
		`, set.Cursor.Stream, set.Cursor.LogID)
		if err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func marketplaceBatch(items []model.Marketplace) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, m := range items {
		batch.Queue(`
			INSERT INTO marketplace (
				id, marketplace_data, version, unicrow_address, unicrow_dispute_address,
				unicrow_arbitrator_address, treasury_address, unicrow_marketplace_fee, paused, owner, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
			ON CONFLICT (id)
			DO UPDATE SET
				marketplace_data = EXCLUDED.marketplace_data,
				version = EXCLUDED.version,
				unicrow_address = EXCLUDED.unicrow_address,
				unicrow_dispute_address = EXCLUDED.unicrow_dispute_address,
				unicrow_arbitrator_address = EXCLUDED.unicrow_arbitrator_address,
				treasury_address = EXCLUDED.treasury_address,
				unicrow_marketplace_fee = EXCLUDED.unicrow_marketplace_fee,
				paused = EXCLUDED.paused,
				owner = EXCLUDED.owner,
				updated_at = now()
		`,
			m.ID.Hex(),
			m.MarketplaceData.Hex(),
			int64(m.Version),
			m.UnicrowAddress.Hex(),
			m.UnicrowDisputeAddress.Hex(),
			m.UnicrowArbitratorAddress.Hex(),
			m.TreasuryAddress.Hex(),
			int32(m.UnicrowMarketplaceFee),
			m.Paused,
			m.Owner.Hex(),
		)
	}
	return batch
}

func userBatch(items []model.User) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, u := range items {
		batch.Queue(`
			INSERT INTO "user" (
				address, public_key, name, bio, avatar, reputation_up, reputation_down,
				average_rating, number_of_reviews, rating_total, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
			ON CONFLICT (address)
			DO UPDATE SET
				public_key = EXCLUDED.public_key,
				name = EXCLUDED.name,
				bio = EXCLUDED.bio,
				avatar = EXCLUDED.avatar,
				reputation_up = EXCLUDED.reputation_up,
				reputation_down = EXCLUDED.reputation_down,
				average_rating = EXCLUDED.average_rating,
				number_of_reviews = EXCLUDED.number_of_reviews,
				rating_total = EXCLUDED.rating_total,
				updated_at = now()
		`,
			u.Address.Hex(),
			nonNilBytes(u.PublicKey),
			u.Name,
			u.Bio,
			u.Avatar,
			int64(u.ReputationUp),
			int64(u.ReputationDown),
			int64(u.AverageRating),
			int64(u.NumberOfReviews),
			int64(u.RatingTotal),
		)
	}
	return batch
}

func arbitratorBatch(items []model.Arbitrator) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, a := range items {
		batch.Queue(`
			INSERT INTO arbitrator (
				address, public_key, name, bio, avatar, fee, settled_count, refused_count, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (address)
			DO UPDATE SET
				public_key = EXCLUDED.public_key,
				name = EXCLUDED.name,
				bio = EXCLUDED.bio,
				avatar = EXCLUDED.avatar,
				fee = EXCLUDED.fee,
				settled_count = EXCLUDED.settled_count,
				refused_count = EXCLUDED.refused_count,
				updated_at = now()
		`,
			a.Address.Hex(),
			nonNilBytes(a.PublicKey),
			a.Name,
			a.Bio,
			a.Avatar,
			int32(a.Fee),
			int64(a.SettledCount),
			int64(a.RefusedCount),
		)
	}
	return batch
}

func jobBatch(items []model.Job) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, job := range items {
		allowed := make([]string, 0, len(job.AllowedWorkers))
		for _, addr := range job.AllowedWorkers {
			allowed = append(allowed, addr.Hex())
		}
		tags := job.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(`
			INSERT INTO job (
				id, state, creator, worker, arbitrator, title, content_hash, multiple_applicants, tags, token,
				amount, max_time, delivery_method, collateral_owed, escrow_id, result_hash, rating, disputed,
				whitelist_workers, allowed_workers, timestamp, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::numeric,$12,$13,$14::numeric,$15::numeric,$16,$17,$18,$19,$20,$21,now())
			ON CONFLICT (id)
			DO UPDATE SET
				state = EXCLUDED.state,
				creator = EXCLUDED.creator,
				worker = EXCLUDED.worker,
				arbitrator = EXCLUDED.arbitrator,
				title = EXCLUDED.title,
				content_hash = EXCLUDED.content_hash,
				multiple_applicants = EXCLUDED.multiple_applicants,
				tags = EXCLUDED.tags,
				token = EXCLUDED.token,
				amount = EXCLUDED.amount,
				max_time = EXCLUDED.max_time,
				delivery_method = EXCLUDED.delivery_method,
				collateral_owed = EXCLUDED.collateral_owed,
				escrow_id = EXCLUDED.escrow_id,
				result_hash = EXCLUDED.result_hash,
				rating = EXCLUDED.rating,
				disputed = EXCLUDED.disputed,
				whitelist_workers = EXCLUDED.whitelist_workers,
				allowed_workers = EXCLUDED.allowed_workers,
				timestamp = EXCLUDED.timestamp,
				updated_at = now()
		`,
			int64(job.ID),
			int16(job.State),
			job.Roles.Creator.Hex(),
			job.Roles.Worker.Hex(),
			job.Roles.Arbitrator.Hex(),
			job.Title,
			job.ContentHash.Hex(),
			job.MultipleApplicants,
			tags,
			job.Token.Hex(),
			numeric(job.Amount),
			int64(job.MaxTime),
			job.DeliveryMethod,
			numeric(job.CollateralOwed),
			numeric(job.EscrowID),
			job.ResultHash.Hex(),
			int32(job.Rating),
			job.Disputed,
			job.WhitelistWorkers,
			allowed,
			int64(job.Timestamp),
		)
	}
	return batch
}

func jobEventBatch(items []model.JobEvent) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, ev := range items {
		details, err := model.MarshalDetails(ev.Details)
		if err != nil {
			return nil, fmt.Errorf("job event %s: %w", ev.ID, err)
		}
		batch.Queue(`
			INSERT INTO job_event (id, job_id, type, address, data, timestamp, block_number, log_index, details)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO NOTHING
		`,
			ev.ID,
			int64(ev.JobID),
			int16(ev.Type),
			ev.Address.Hex(),
			nonNilBytes(ev.Data),
			int64(ev.Timestamp),
			int64(ev.BlockNumber),
			int64(ev.LogIndex),
			details,
		)
	}
	return batch, nil
}

func reviewBatch(items []model.Review) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range items {
		batch.Queue(`
			INSERT INTO review (id, user_id, reviewer, job_id, rating, text, timestamp)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO NOTHING
		`,
			r.ID,
			r.User.Hex(),
			r.Reviewer.Hex(),
			int64(r.JobID),
			int32(r.Rating),
			r.Text,
			int64(r.Timestamp),
		)
	}
	return batch
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseNumeric(column, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s %q", column, raw)
	}
	return v, nil
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
