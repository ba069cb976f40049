package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
	"github.com/snowfork/snowbridge/beefy-client/config"
	"github.com/snowfork/snowbridge/beefy-client/store"
)

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return nil, errors.New("--config is required")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetOutput(logrus.WithFields(logrus.Fields{"logger": "stdlib"}).WriterLevel(logrus.InfoLevel))
	logrus.SetLevel(level)

	return cfg, nil
}

// openStore returns nil when no store backend is configured.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Store.Backend == "" {
		return nil, nil
	}
	return store.Open(cfg.Store.Backend, cfg.Store.Dir)
}

// openClient starts a client from persisted state if a store is
// configured, otherwise from the configured checkpoint.
func openClient(cfg *config.Config) (*beefy.Client, func(), error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		client, err := beefy.NewClient(cfg.Checkpoint, cfg.Verifier.Options(), nil)
		return client, func() {}, err
	}

	closer := func() {
		if err := s.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close store")
		}
	}
	client, err := beefy.NewClient(s.Checkpoint(cfg.Checkpoint), cfg.Verifier.Options(), s)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// readSubmissions accepts a file holding either one submission or an array.
func readSubmissions(path string) ([]*beefy.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var subs []*beefy.Submission
		if err := json.Unmarshal(trimmed, &subs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		for i, sub := range subs {
			if sub == nil {
				return nil, fmt.Errorf("decode %s: entry %d is null", path, i)
			}
		}
		return subs, nil
	}

	var sub beefy.Submission
	if err := json.Unmarshal(trimmed, &sub); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return []*beefy.Submission{&sub}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
