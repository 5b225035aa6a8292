package session

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobScope/internal/blobstore"
	"jobScope/internal/codec"
	"jobScope/internal/model"
)

// Status is the outcome of resolving one event's content.
type Status string

const (
	StatusPlaintext     Status = "plaintext"
	StatusDecrypted     Status = "decrypted"
	StatusNoSessionKey  Status = "no_session_key"
	StatusUnavailable   Status = "unavailable"
	StatusDecryptFailed Status = "decrypt_failed"
)

// Content is the resolved content of one job event.
type Content struct {
	EventID     string             `json:"event_id"`
	Type        model.JobEventType `json:"type"`
	ContentHash common.Hash        `json:"content_hash"`
	Status      Status             `json:"status"`
	Text        string             `json:"text,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Viewer is the participant decrypting a job's content.
type Viewer struct {
	Key *ecdsa.PrivateKey
}

func (v Viewer) Address() common.Address {
	return crypto.PubkeyToAddress(v.Key.PublicKey)
}

// Pipeline resolves and decrypts the content referenced by job events.
type Pipeline struct {
	resolver Resolver
	blobs    blobstore.Store
	fanout   int
	logger   *zap.Logger
}

func NewPipeline(resolver Resolver, blobs blobstore.Store, fanout int, logger *zap.Logger) *Pipeline {
	if fanout <= 0 {
		fanout = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{resolver: resolver, blobs: blobs, fanout: fanout, logger: logger}
}

// reference is the content an event points at and how to read it. For a
// dispute, arbitrator is the one holding the job when it was raised.
type reference struct {
	event      model.JobEvent
	hash       common.Hash
	plaintext  bool
	pair       pair
	dispute    bool
	arbitrator common.Address
}

// Resolve returns one Content per event that references content, in event
// order. Missing keys and failed fetches are reported per event. Only
// cancellation of ctx is returned as an error.
func (p *Pipeline) Resolve(ctx context.Context, job *model.Job, events []model.JobEvent, viewer Viewer) ([]Content, error) {
	self := viewer.Address()
	refs := references(job, events)
	p.logger.Debug("resolving job content", zap.Uint64("job", job.ID), zap.Int("references", len(refs)))

	// Every public key is resolved before any session key is derived.
	pubkeys, err := p.resolvePublicKeys(ctx, counterparts(job, refs, self))
	if err != nil {
		return nil, err
	}
	keys := p.deriveKeys(viewer, self, job.ID, pubkeys)
	p.revealDisputes(refs, keys)

	blobs, fetchErrs, err := p.fetch(ctx, refs)
	if err != nil {
		return nil, err
	}

	out := make([]Content, 0, len(refs))
	for _, ref := range refs {
		content := Content{EventID: ref.event.ID, Type: ref.event.Type, ContentHash: ref.hash}
		if err := fetchErrs[ref.hash]; err != nil {
			content.Status = StatusUnavailable
			content.Error = err.Error()
			out = append(out, content)
			continue
		}
		data := blobs[ref.hash]
		if ref.plaintext {
			content.Status = StatusPlaintext
			content.Text = string(data)
			out = append(out, content)
			continue
		}

		key, ok := keys[ref.pair]
		if !ok {
			content.Status = StatusNoSessionKey
			out = append(out, content)
			continue
		}
		plaintext, err := Open(key, data)
		if err == nil && !utf8.Valid(plaintext) {
			err = errors.New("plaintext is not valid utf-8")
		}
		if err != nil {
			content.Status = StatusDecryptFailed
			content.Error = err.Error()
		} else {
			content.Status = StatusDecrypted
			content.Text = string(plaintext)
		}
		out = append(out, content)
	}
	return out, nil
}

func (p *Pipeline) resolvePublicKeys(ctx context.Context, addrs []common.Address) (map[common.Address]*ecdsa.PublicKey, error) {
	found := make([]*ecdsa.PublicKey, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fanout)
	for i, addr := range addrs {
		g.Go(func() error {
			raw, err := p.resolver.PublicKey(gctx, addr)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, ErrUnknownKey) {
					p.logger.Debug("public key not registered", zap.String("address", addr.Hex()))
				} else {
					p.logger.Warn("public key lookup failed", zap.String("address", addr.Hex()), zap.Error(err))
				}
				return nil
			}
			pub, err := ParsePublicKey(raw)
			if err != nil {
				p.logger.Warn("unusable public key", zap.String("address", addr.Hex()), zap.Error(err))
				return nil
			}
			found[i] = pub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve public keys: %w", err)
	}

	out := make(map[common.Address]*ecdsa.PublicKey, len(addrs))
	for i, pub := range found {
		if pub != nil {
			out[addrs[i]] = pub
		}
	}
	return out, nil
}

func (p *Pipeline) deriveKeys(viewer Viewer, self common.Address, jobID uint64, pubkeys map[common.Address]*ecdsa.PublicKey) map[pair][]byte {
	keys := make(map[pair][]byte, len(pubkeys))
	for addr, pub := range pubkeys {
		key, err := DeriveKey(viewer.Key, pub, jobID)
		if err != nil {
			p.logger.Warn("session key derivation failed", zap.String("address", addr.Hex()), zap.Error(err))
			continue
		}
		keys[pairOf(self, addr)] = key
	}
	return keys
}

// revealDisputes unwraps the creator/worker session key embedded in each
// Disputed event. Only the initiator and the arbitrator can open it; the
// arbitrator learns the pair key this way.
func (p *Pipeline) revealDisputes(refs []reference, keys map[pair][]byte) {
	for _, ref := range refs {
		if !ref.dispute {
			continue
		}
		if _, known := keys[ref.pair]; known {
			continue
		}
		details, ok := ref.event.Details.(model.JobDisputedDetails)
		if !ok {
			continue
		}
		wrapKey, ok := keys[pairOf(ref.event.Address, ref.arbitrator)]
		if !ok {
			continue
		}
		key, err := OpenSessionKey(wrapKey, details.SealedSessionKey)
		if err != nil {
			p.logger.Warn("dispute session key not readable", zap.String("event", ref.event.ID), zap.Error(err))
			continue
		}
		keys[ref.pair] = key
	}
}

func (p *Pipeline) fetch(ctx context.Context, refs []reference) (map[common.Hash][]byte, map[common.Hash]error, error) {
	var hashes []common.Hash
	seen := make(map[common.Hash]bool)
	for _, ref := range refs {
		if !seen[ref.hash] {
			seen[ref.hash] = true
			hashes = append(hashes, ref.hash)
		}
	}

	data := make([][]byte, len(hashes))
	errs := make([]error, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fanout)
	for i, hash := range hashes {
		g.Go(func() error {
			blob, err := p.blobs.Fetch(gctx, hash)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			data[i], errs[i] = blob, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch content: %w", err)
	}

	blobs := make(map[common.Hash][]byte, len(hashes))
	failures := make(map[common.Hash]error)
	for i, hash := range hashes {
		if errs[i] != nil {
			p.logger.Debug("content unavailable", zap.String("hash", hash.Hex()), zap.Error(errs[i]))
			failures[hash] = errs[i]
			continue
		}
		blobs[hash] = data[i]
	}
	return blobs, failures, nil
}

// references lists the content each event points at, tracking the worker and
// the arbitrator as they change so that every reference names the right pair.
func references(job *model.Job, events []model.JobEvent) []reference {
	ordered := append([]model.JobEvent(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	creator, arbitrator := job.Roles.Creator, job.Roles.Arbitrator
	var (
		worker common.Address
		refs   []reference
	)
	for _, ev := range ordered {
		payload := codec.JobPayload{Details: ev.Details}
		if ev.Details == nil || ev.Type == model.JobEventDelivered {
			decoded, err := codec.DecodeJobPayload(ev.Type, ev.Data)
			if err != nil {
				continue
			}
			payload = decoded
			ev.Details = decoded.Details
		}

		switch ev.Type {
		case model.JobEventTaken, model.JobEventPaid:
			worker = ev.Address
		case model.JobEventRefunded:
			worker = common.Address{}
		case model.JobEventArbitrationRefused:
			arbitrator = common.Address{}
		case model.JobEventDelivered:
			refs = appendRef(refs, reference{event: ev, hash: payload.ResultHash, pair: pairOf(ev.Address, creator)})
		}

		switch d := payload.Details.(type) {
		case model.JobCreatedDetails:
			arbitrator = d.Arbitrator
			refs = appendRef(refs, reference{event: ev, hash: d.ContentHash, plaintext: true})
		case model.JobUpdatedDetails:
			arbitrator = d.Arbitrator
			refs = appendRef(refs, reference{event: ev, hash: d.ContentHash, plaintext: true})
		case model.JobMessageDetails:
			refs = appendRef(refs, reference{event: ev, hash: d.ContentHash, pair: pairOf(ev.Address, d.Recipient)})
		case model.JobDisputedDetails:
			refs = appendRef(refs, reference{event: ev, hash: d.ContentHash, pair: pairOf(creator, worker), dispute: true, arbitrator: arbitrator})
		case model.JobArbitratedDetails:
			refs = appendRef(refs, reference{event: ev, hash: d.ReasonHash, pair: pairOf(ev.Address, creator)})
		}
	}
	return refs
}

func appendRef(refs []reference, ref reference) []reference {
	if ref.hash == (common.Hash{}) {
		return refs
	}
	return append(refs, ref)
}

// counterparts are the participants whose public keys the viewer needs.
func counterparts(job *model.Job, refs []reference, self common.Address) []common.Address {
	seen := map[common.Address]bool{self: true, {}: true}
	var out []common.Address
	add := func(addr common.Address) {
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	add(job.Roles.Creator)
	add(job.Roles.Worker)
	add(job.Roles.Arbitrator)
	for _, ref := range refs {
		if ref.plaintext {
			continue
		}
		add(ref.pair[0])
		add(ref.pair[1])
		add(ref.event.Address)
		add(ref.arbitrator)
	}
	return out
}
