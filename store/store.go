// Package store persists light client state between runs.
package store

import (
	"bytes"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/scale"
	dbm "github.com/tendermint/tm-db"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
)

var ErrNotFound = errors.New("not found")

var stateKey = []byte("beefy/state")

func validatorSetKey(id uint64) []byte {
	return []byte(fmt.Sprintf("beefy/validatorset/%020d", id))
}

// Store keeps the latest accepted state and every validator set the client
// has trusted, keyed by id.
type Store struct {
	db dbm.DB
}

func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// Open opens or creates the database under dir. backend is a tm-db backend
// name such as "goleveldb" or "memdb".
func Open(backend, dir string) (*Store, error) {
	db, err := dbm.NewDB("beefy", dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("open %s database in %s: %w", backend, dir, err)
	}
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the state and both of its validator sets in one batch.
func (s *Store) Save(state beefy.State) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := put(batch, stateKey, &state); err != nil {
		return err
	}
	for _, set := range []beefy.ValidatorSet{state.CurrentValidatorSet, state.NextValidatorSet} {
		set := set
		if err := put(batch, validatorSetKey(set.ID), &set); err != nil {
			return err
		}
	}

	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	log.WithFields(log.Fields{
		"latestBeefyBlock":      state.LatestBeefyBlock,
		"currentValidatorSetID": state.CurrentValidatorSet.ID,
	}).Debug("Persisted state")

	return nil
}

func put(batch dbm.Batch, key []byte, value interface{}) error {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := batch.Set(key, buf.Bytes()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(key []byte, target interface{}) error {
	bz, err := s.db.Get(key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if bz == nil {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err := scale.NewDecoder(bytes.NewReader(bz)).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// State returns the last saved state.
func (s *Store) State() (beefy.State, error) {
	var state beefy.State
	if err := s.get(stateKey, &state); err != nil {
		return beefy.State{}, err
	}
	return state, nil
}

// ValidatorSet returns a validator set that was current or next in some
// saved state.
func (s *Store) ValidatorSet(id uint64) (beefy.ValidatorSet, error) {
	var set beefy.ValidatorSet
	if err := s.get(validatorSetKey(id), &set); err != nil {
		return beefy.ValidatorSet{}, err
	}
	return set, nil
}

// Checkpoint resumes from the saved state, falling back to the given
// provider on first start.
func (s *Store) Checkpoint(fallback beefy.CheckpointProvider) beefy.CheckpointProvider {
	return &checkpoint{store: s, fallback: fallback}
}

type checkpoint struct {
	store    *Store
	fallback beefy.CheckpointProvider
}

func (c *checkpoint) Checkpoint() (beefy.State, error) {
	state, err := c.store.State()
	if err == nil {
		log.WithField("latestBeefyBlock", state.LatestBeefyBlock).Info("Resuming from persisted state")
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) || c.fallback == nil {
		return beefy.State{}, err
	}

	state, err = c.fallback.Checkpoint()
	if err != nil {
		return beefy.State{}, err
	}
	if err := c.store.Save(state); err != nil {
		return beefy.State{}, err
	}
	return state, nil
}
