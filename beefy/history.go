package beefy

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/snowfork/snowbridge/beefy-client/crypto/keccak"
)

// HistoricalSubmission pairs a past commitment with the already trusted
// validator set it claims to be signed by.
type HistoricalSubmission struct {
	ValidatorSet ValidatorSet `json:"validatorSet"`
	Submission   *Submission  `json:"submission"`
}

// historyKey identifies a submission in full, so a resubmitted commitment
// with different signatures or proofs is verified again.
type historyKey struct {
	commitmentHash common.Hash
	bitfieldHash   common.Hash
	proofsHash     common.Hash
	set            ValidatorSet
}

func newHistoryKey(item *HistoricalSubmission) historyKey {
	return historyKey{
		commitmentHash: HashCommitment(&item.Submission.Commitment),
		bitfieldHash:   item.Submission.Bitfield.Hash(),
		proofsHash:     hashProofs(item.Submission.Proofs),
		set:            item.ValidatorSet,
	}
}

// hashProofs is keccak256 over v || r || s || be32(index) || account || path
// of every proof in order, each path prefixed with its be32 length.
func hashProofs(proofs []ValidatorProof) common.Hash {
	var buf []byte
	for i := range proofs {
		proof := &proofs[i]
		buf = append(buf, proof.V)
		buf = append(buf, proof.R[:]...)
		buf = append(buf, proof.S[:]...)
		buf = binary.BigEndian.AppendUint32(buf, proof.Index)
		buf = append(buf, proof.Account[:]...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(proof.Proof)))
		for _, item := range proof.Proof {
			buf = append(buf, item[:]...)
		}
	}
	return keccak.Sum(buf)
}

type HistoryResult struct {
	Output *Output
	Err    error
}

// VerifyHistorical checks a commitment against a fixed validator set. It
// never touches client state, so any number of calls may run in parallel.
func VerifyHistorical(set ValidatorSet, sub *Submission, opts Options) (*Output, error) {
	if sub.Commitment.ValidatorSetID != set.ID {
		return nil, fmt.Errorf("%w: signed by validator set %d, expected %d", ErrInvalidCommitment, sub.Commitment.ValidatorSetID, set.ID)
	}

	commitmentHash, err := verifyCommitment(set, sub, opts)
	if err != nil {
		return nil, err
	}

	root, err := ExtractMMRRoot(&sub.Commitment)
	if err != nil {
		return nil, err
	}

	return &Output{
		LatestMMRRoot:    root,
		LatestBeefyBlock: uint64(sub.Commitment.BlockNumber),
		CommitmentHash:   commitmentHash,
	}, nil
}

// HistoryVerifier verifies batches of historical commitments on a bounded
// pool of workers. Commitments already proven against a set are served
// from an LRU cache.
type HistoryVerifier struct {
	workers int
	opts    Options
	cache   *lru.Cache
}

func NewHistoryVerifier(workers, cacheSize int, opts Options) (*HistoryVerifier, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &HistoryVerifier{
		workers: workers,
		opts:    opts,
		cache:   cache,
	}, nil
}

// VerifyAll verifies every item and returns one result per item, in input
// order. Verification failures are reported per item; the returned error is
// only set when ctx is cancelled.
func (h *HistoryVerifier) VerifyAll(ctx context.Context, items []HistoricalSubmission) ([]HistoryResult, error) {
	results := make([]HistoryResult, len(items))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(h.workers)

	for i := range items {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = h.verify(&items[i])
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *HistoryVerifier) verify(item *HistoricalSubmission) HistoryResult {
	key := newHistoryKey(item)
	if cached, ok := h.cache.Get(key); ok {
		historyCacheHit.Inc()
		return HistoryResult{Output: cached.(*Output)}
	}
	historyCacheMiss.Inc()

	output, err := VerifyHistorical(item.ValidatorSet, item.Submission, h.opts)
	if err != nil {
		class := Classify(err)
		entry := log.WithError(err).WithFields(log.Fields{
			"commitment": commitmentToLog(&item.Submission.Commitment),
			"class":      class.String(),
		})
		if class == ClassForgery {
			entry.WithField("forgery", true).Warn("Historical commitment carries forged signatures or proofs")
		} else {
			entry.Debug("Historical commitment failed verification")
		}
		return HistoryResult{Err: err}
	}

	h.cache.Add(key, output)
	return HistoryResult{Output: output}
}
