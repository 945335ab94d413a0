// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Environment variables overriding the pool defaults.
const (
	EnvPoolMax       = "RESTGATE_SESSION_POOL_MAX"
	EnvIdleTimeout   = "RESTGATE_SESSION_IDLE_TIMEOUT"
	EnvSweepInterval = "RESTGATE_SESSION_SWEEP_INTERVAL"
)

// 30 minutes matches the server's logicalSessionTimeoutMinutes default.
const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// PoolConfig tunes the server session pool.
type PoolConfig struct {
	// MaxSessions caps the number of pooled sessions. Zero means unlimited.
	MaxSessions int
	// IdleTimeout is how long a session may sit unused before the sweeper
	// evicts it.
	IdleTimeout time.Duration
	// SweepInterval is the period of the idle eviction sweep. Zero disables
	// the background sweeper; EvictIdle can still be called directly.
	SweepInterval time.Duration
	// Logger receives eviction and close events. Defaults to the standard
	// logrus logger.
	Logger *logrus.Logger
}

// PoolConfigFromEnv builds a PoolConfig from the environment, falling back
// to the defaults above. A value that is present but unparsable is an error,
// not a silent fallback.
func PoolConfigFromEnv() (PoolConfig, error) {
	cfg := PoolConfig{
		IdleTimeout:   defaultIdleTimeout,
		SweepInterval: defaultSweepInterval,
	}

	if v := envy.Get(EnvPoolMax, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return PoolConfig{}, errors.Wrapf(err, "parse %s", EnvPoolMax)
		}
		cfg.MaxSessions = n
	}
	if v := envy.Get(EnvIdleTimeout, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return PoolConfig{}, errors.Wrapf(err, "parse %s", EnvIdleTimeout)
		}
		cfg.IdleTimeout = d
	}
	if v := envy.Get(EnvSweepInterval, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return PoolConfig{}, errors.Wrapf(err, "parse %s", EnvSweepInterval)
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}
