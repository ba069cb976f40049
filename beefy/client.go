package beefy

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// CheckpointProvider supplies the trusted state a client starts from.
type CheckpointProvider interface {
	Checkpoint() (State, error)
}

// StaticCheckpoint provides a state known up front.
type StaticCheckpoint State

func (s StaticCheckpoint) Checkpoint() (State, error) {
	return State(s), nil
}

// StateWriter persists state after each accepted submission.
type StateWriter interface {
	Save(state State) error
}

// Client serializes submissions against a single state. Verification is
// computed against a snapshot and installed only once it fully succeeds.
type Client struct {
	mu     sync.Mutex
	state  State
	opts   Options
	writer StateWriter
}

// NewClient starts a client from the provider's checkpoint. writer may be
// nil, in which case state lives only in memory.
func NewClient(provider CheckpointProvider, opts Options, writer StateWriter) (*Client, error) {
	state, err := provider.Checkpoint()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	log.WithFields(stateToLog(&state)).Info("Initialized BEEFY light client")
	recordState(&state)

	return &Client{
		state:  state,
		opts:   opts,
		writer: writer,
	}, nil
}

// State returns a copy of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit verifies sub and, on success, advances the client state.
func (c *Client) Submit(sub *Submission) (*Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, output, err := Verify(c.state, sub, c.opts)
	if err != nil {
		class := Classify(err)
		submissionsTotal.WithLabelValues(class.String()).Inc()

		entry := log.WithError(err).WithFields(log.Fields{
			"commitment": commitmentToLog(&sub.Commitment),
			"class":      class.String(),
		})
		switch class {
		case ClassForgery:
			entry.WithField("forgery", true).Warn("Rejected forged commitment submission")
		case ClassStale:
			entry.Debug("Ignored stale commitment")
		default:
			entry.Info("Rejected commitment submission")
		}
		return nil, err
	}

	if c.writer != nil {
		if err := c.writer.Save(next); err != nil {
			return nil, fmt.Errorf("persist state: %w", err)
		}
	}

	rotated := next.CurrentValidatorSet.ID != c.state.CurrentValidatorSet.ID
	c.state = next

	submissionsTotal.WithLabelValues("accepted").Inc()
	recordState(&next)

	log.WithFields(log.Fields{
		"commitmentHash":   output.CommitmentHash.Hex(),
		"latestMMRRoot":    output.LatestMMRRoot.Hex(),
		"latestBeefyBlock": output.LatestBeefyBlock,
		"rotated":          rotated,
	}).Info("Accepted commitment")
	if rotated {
		log.WithFields(stateToLog(&next)).Info("Rotated validator set")
	}
	log.WithFields(submissionToLog(sub)).Trace("Accepted submission")

	return output, nil
}
