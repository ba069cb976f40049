// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/snowfork/snowbridge/beefy-client/beefy"
	"github.com/snowfork/snowbridge/beefy-client/beefy/fiatshamir"
)

type Config struct {
	LogLevel   string           `mapstructure:"log-level"`
	Verifier   VerifierConfig   `mapstructure:"verifier"`
	Store      StoreConfig      `mapstructure:"store"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

type VerifierConfig struct {
	// Upper bound on sampled signatures per commitment
	MaxRequiredSignatures uint64 `mapstructure:"max-required-signatures"`
	// Byte order of the block number in the public output, "little" or "big"
	OutputByteOrder string `mapstructure:"output-byte-order"`
	// Parallelism when verifying historical commitments, 0 for one per CPU
	HistoryWorkers   int `mapstructure:"history-workers"`
	HistoryCacheSize int `mapstructure:"history-cache-size"`
}

type StoreConfig struct {
	// A tm-db backend name, empty to keep state in memory only
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type ValidatorSetConfig struct {
	ID     uint64      `mapstructure:"id"`
	Length uint64      `mapstructure:"length"`
	Root   common.Hash `mapstructure:"root"`
}

// CheckpointConfig is the trusted state the client starts from when no
// state has been persisted yet.
type CheckpointConfig struct {
	LatestMMRRoot       common.Hash        `mapstructure:"latest-mmr-root"`
	LatestBeefyBlock    uint64             `mapstructure:"latest-beefy-block"`
	CurrentValidatorSet ValidatorSetConfig `mapstructure:"current-validator-set"`
	NextValidatorSet    ValidatorSetConfig `mapstructure:"next-validator-set"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("verifier.max-required-signatures", fiatshamir.GlobalCap)
	v.SetDefault("verifier.output-byte-order", "little")
	v.SetDefault("verifier.history-workers", 0)
	v.SetDefault("verifier.history-cache-size", 1024)
}

// Load reads the configuration file at path. The format follows the file
// extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(HexHookFunc())); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Verifier.ByteOrder(); err != nil {
		return err
	}
	if c.Verifier.MaxRequiredSignatures == 0 {
		return errors.New("verifier.max-required-signatures must be positive")
	}
	if c.Verifier.HistoryCacheSize <= 0 {
		return errors.New("verifier.history-cache-size must be positive")
	}
	return nil
}

func (c VerifierConfig) ByteOrder() (binary.ByteOrder, error) {
	switch c.OutputByteOrder {
	case "little", "":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown output byte order %q", c.OutputByteOrder)
	}
}

func (c VerifierConfig) Options() beefy.Options {
	return beefy.Options{MaxRequiredSignatures: c.MaxRequiredSignatures}
}

func (c ValidatorSetConfig) validatorSet() beefy.ValidatorSet {
	return beefy.ValidatorSet{ID: c.ID, Length: c.Length, Root: c.Root}
}

// Checkpoint implements beefy.CheckpointProvider.
func (c CheckpointConfig) Checkpoint() (beefy.State, error) {
	if c.CurrentValidatorSet.Length == 0 || c.NextValidatorSet.Length == 0 {
		return beefy.State{}, errors.New("checkpoint validator sets must not be empty")
	}
	if c.NextValidatorSet.ID != c.CurrentValidatorSet.ID+1 {
		return beefy.State{}, fmt.Errorf(
			"checkpoint next validator set %d does not follow current set %d",
			c.NextValidatorSet.ID, c.CurrentValidatorSet.ID,
		)
	}

	return beefy.State{
		LatestMMRRoot:       c.LatestMMRRoot,
		LatestBeefyBlock:    c.LatestBeefyBlock,
		CurrentValidatorSet: c.CurrentValidatorSet.validatorSet(),
		NextValidatorSet:    c.NextValidatorSet.validatorSet(),
	}, nil
}
