package session

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobScope/internal/blobstore"
	"jobScope/internal/model"
)

const jobID = 7

type disputeFixture struct {
	t                  *testing.T
	creator, worker    *ecdsa.PrivateKey
	arbitrator         *ecdsa.PrivateKey
	blobs              *blobstore.MemoryStore
	resolver           *mapResolver
	job                *model.Job
	events             []model.JobEvent
	pairKey, reasonKey []byte
}

func newDisputeFixture(t *testing.T) *disputeFixture {
	f := &disputeFixture{
		t:          t,
		creator:    newKey(t),
		worker:     newKey(t),
		arbitrator: newKey(t),
		blobs:      blobstore.NewMemoryStore(),
	}
	creator, worker, arbitrator := f.addr(f.creator), f.addr(f.worker), f.addr(f.arbitrator)
	f.resolver = &mapResolver{keys: map[common.Address][]byte{
		creator:    crypto.CompressPubkey(&f.creator.PublicKey),
		worker:     crypto.CompressPubkey(&f.worker.PublicKey),
		arbitrator: crypto.FromECDSAPub(&f.arbitrator.PublicKey),
	}}
	f.job = &model.Job{ID: jobID, Roles: model.JobRoles{Creator: creator, Worker: worker, Arbitrator: arbitrator}}

	var err error
	f.pairKey, err = DeriveKey(f.creator, &f.worker.PublicKey, jobID)
	require.NoError(t, err)
	f.reasonKey, err = DeriveKey(f.arbitrator, &f.creator.PublicKey, jobID)
	require.NoError(t, err)
	wrapKey, err := DeriveKey(f.creator, &f.arbitrator.PublicKey, jobID)
	require.NoError(t, err)
	sealed, err := SealSessionKey(wrapKey, f.pairKey)
	require.NoError(t, err)

	result := f.sealed(f.pairKey, "result")
	f.add(model.JobEventCreated, creator, nil, model.JobCreatedDetails{ContentHash: f.put([]byte("job description")), Arbitrator: arbitrator})
	f.add(model.JobEventTaken, worker, []byte{1}, nil)
	f.add(model.JobEventWorkerMessage, worker, nil, model.JobMessageDetails{ContentHash: f.sealed(f.pairKey, "hi"), Recipient: creator})
	f.add(model.JobEventDelivered, worker, result.Bytes(), nil)
	f.add(model.JobEventDisputed, creator, nil, model.JobDisputedDetails{SealedSessionKey: sealed, ContentHash: f.sealed(f.pairKey, "late delivery")})
	f.add(model.JobEventArbitrated, arbitrator, nil, model.JobArbitratedDetails{ReasonHash: f.sealed(f.reasonKey, "split")})
	return f
}

func (f *disputeFixture) addr(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

func (f *disputeFixture) put(data []byte) common.Hash {
	hash, err := f.blobs.Put(context.Background(), data)
	require.NoError(f.t, err)
	return hash
}

func (f *disputeFixture) sealed(key []byte, text string) common.Hash {
	blob, err := Seal(key, []byte(text))
	require.NoError(f.t, err)
	return f.put(blob)
}

func (f *disputeFixture) add(eventType model.JobEventType, from common.Address, data []byte, details model.EventDetails) {
	block := uint64(len(f.events) + 1)
	f.events = append(f.events, model.JobEvent{
		ID:          model.LogID(block, 0),
		JobID:       jobID,
		Type:        eventType,
		Address:     from,
		Data:        data,
		BlockNumber: block,
		Details:     details,
	})
}

func (f *disputeFixture) resolve(viewer *ecdsa.PrivateKey, events []model.JobEvent) []Content {
	pipeline := NewPipeline(f.resolver, f.blobs, 2, nil)
	contents, err := pipeline.Resolve(context.Background(), f.job, events, Viewer{Key: viewer})
	require.NoError(f.t, err)
	return contents
}

func statuses(contents []Content) []Status {
	out := make([]Status, len(contents))
	for i, c := range contents {
		out[i] = c.Status
	}
	return out
}

func texts(contents []Content) []string {
	out := make([]string, len(contents))
	for i, c := range contents {
		out[i] = c.Text
	}
	return out
}

func TestPipelineCreatorView(t *testing.T) {
	f := newDisputeFixture(t)
	contents := f.resolve(f.creator, f.events)

	assert.Equal(t, []Status{StatusPlaintext, StatusDecrypted, StatusDecrypted, StatusDecrypted, StatusDecrypted}, statuses(contents))
	assert.Equal(t, []string{"job description", "hi", "result", "late delivery", "split"}, texts(contents))
	assert.Equal(t, model.JobEventWorkerMessage, contents[1].Type)
}

func TestPipelineArbitratorLearnsPairKeyFromDispute(t *testing.T) {
	f := newDisputeFixture(t)
	contents := f.resolve(f.arbitrator, f.events)

	assert.Equal(t, []Status{StatusPlaintext, StatusDecrypted, StatusDecrypted, StatusDecrypted, StatusDecrypted}, statuses(contents))
	assert.Equal(t, "hi", contents[1].Text)
	assert.Equal(t, "late delivery", contents[3].Text)

	withoutDispute := f.resolve(f.arbitrator, f.events[:4])
	assert.Equal(t, []Status{StatusPlaintext, StatusNoSessionKey, StatusNoSessionKey}, statuses(withoutDispute))
}

func TestPipelineDisputeReadableByArbitratorAfterRoleChange(t *testing.T) {
	tests := []struct {
		name    string
		after   model.JobEventType
		details model.EventDetails
		final   common.Address
	}{
		{name: "refused", after: model.JobEventArbitrationRefused},
		{name: "replaced", after: model.JobEventUpdated, details: model.JobUpdatedDetails{Arbitrator: common.HexToAddress("0xa1")}, final: common.HexToAddress("0xa1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDisputeFixture(t)
			f.job.Roles.Arbitrator = tt.final
			events := append([]model.JobEvent(nil), f.events[:5]...)
			events = append(events, model.JobEvent{
				ID:          model.LogID(6, 0),
				JobID:       jobID,
				Type:        tt.after,
				Address:     f.addr(f.creator),
				BlockNumber: 6,
				Details:     tt.details,
			})

			contents := f.resolve(f.arbitrator, events)
			assert.Equal(t, []Status{StatusPlaintext, StatusDecrypted, StatusDecrypted, StatusDecrypted}, statuses(contents))
			assert.Equal(t, []string{"job description", "hi", "result", "late delivery"}, texts(contents))
		})
	}
}

func TestPipelineWorkerCannotReadArbitrationReason(t *testing.T) {
	f := newDisputeFixture(t)
	contents := f.resolve(f.worker, f.events)

	assert.Equal(t, []Status{StatusPlaintext, StatusDecrypted, StatusDecrypted, StatusDecrypted, StatusNoSessionKey}, statuses(contents))
	assert.Empty(t, contents[4].Text)
}

func TestPipelineUnknownPublicKey(t *testing.T) {
	f := newDisputeFixture(t)
	delete(f.resolver.keys, f.addr(f.worker))

	contents := f.resolve(f.creator, f.events[:4])
	assert.Equal(t, []Status{StatusPlaintext, StatusNoSessionKey, StatusNoSessionKey}, statuses(contents))
}

func TestPipelineContentFailures(t *testing.T) {
	f := newDisputeFixture(t)
	creator, worker := f.addr(f.creator), f.addr(f.worker)
	events := f.events[:2]
	f.events = events
	f.add(model.JobEventOwnerMessage, creator, nil, model.JobMessageDetails{ContentHash: common.HexToHash("0xdead"), Recipient: worker})
	f.add(model.JobEventOwnerMessage, creator, nil, model.JobMessageDetails{ContentHash: f.put([]byte("not a ciphertext at all")), Recipient: worker})
	f.add(model.JobEventOwnerMessage, creator, nil, model.JobMessageDetails{Recipient: worker})

	contents := f.resolve(f.worker, f.events)
	require.Len(t, contents, 3, "events without a content hash are skipped")
	assert.Equal(t, StatusUnavailable, contents[1].Status)
	assert.NotEmpty(t, contents[1].Error)
	assert.Equal(t, StatusDecryptFailed, contents[2].Status)
}

func TestPipelineCancelled(t *testing.T) {
	f := newDisputeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := NewPipeline(blockingResolver{}, f.blobs, 1, nil)
	_, err := pipeline.Resolve(ctx, f.job, f.events, Viewer{Key: f.creator})
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingResolver struct{}

func (blockingResolver) PublicKey(ctx context.Context, _ common.Address) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
