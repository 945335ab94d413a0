// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSessionPool(t *testing.T) {
	t.Run("OneInstancePerID", func(t *testing.T) {
		p := NewPool(PoolConfig{IdleTimeout: 30 * time.Minute})
		defer p.Close()
		sid := mustSessionID(t, SessionOptions{})

		first, err := p.GetSession(sid)
		require.NoError(t, err)
		second, err := p.GetSession(sid)
		require.NoError(t, err)

		assert.Same(t, first, second, "expected one ServerSession instance per id")
		assert.Equal(t, 1, p.Len())
	})

	t.Run("EndedIDGetsFreshSession", func(t *testing.T) {
		p := NewPool(PoolConfig{IdleTimeout: 30 * time.Minute})
		defer p.Close()
		sid := mustSessionID(t, SessionOptions{})

		first, err := p.GetSession(sid)
		require.NoError(t, err)
		p.ReturnSession(sid)
		p.EndSession(sid)
		assert.True(t, first.Closed())

		second, err := p.GetSession(sid)
		require.NoError(t, err)
		assert.NotSame(t, first, second, "closed id must get a brand-new session")
		assert.False(t, second.Closed())
	})

	t.Run("CapacityLimit", func(t *testing.T) {
		p := NewPool(PoolConfig{MaxSessions: 1, IdleTimeout: 30 * time.Minute})
		defer p.Close()

		_, err := p.GetSession(mustSessionID(t, SessionOptions{}))
		require.NoError(t, err)

		_, err = p.GetSession(mustSessionID(t, SessionOptions{}))
		assert.True(t, errors.Is(err, ErrSessionLimit), "expected ErrSessionLimit, got %v", err)
	})

	t.Run("EvictIdle", func(t *testing.T) {
		// New sessions always count as stale once returned.
		p := NewPool(PoolConfig{IdleTimeout: time.Nanosecond})
		defer p.Close()
		sid := mustSessionID(t, SessionOptions{})

		sess, err := p.GetSession(sid)
		require.NoError(t, err)
		sess.lastUsed.Store(time.Now().Add(-time.Minute).UnixMilli())

		// A checked-out session must survive the sweep.
		p.EvictIdle()
		assert.Equal(t, 1, p.Len(), "checked-out session was evicted")
		assert.False(t, sess.Closed())

		p.ReturnSession(sid)
		p.EvictIdle()
		assert.Equal(t, 0, p.Len(), "idle session was not evicted")
		assert.True(t, sess.Closed())
	})

	t.Run("ConcurrentGetsObserveOneInstance", func(t *testing.T) {
		p := NewPool(PoolConfig{IdleTimeout: 30 * time.Minute})
		defer p.Close()
		sid := mustSessionID(t, SessionOptions{})

		const workers = 16
		got := make([]*ServerSession, workers)

		var g errgroup.Group
		for i := 0; i < workers; i++ {
			i := i
			g.Go(func() error {
				sess, err := p.GetSession(sid)
				if err != nil {
					return err
				}
				got[i] = sess
				return nil
			})
		}
		require.NoError(t, g.Wait())

		for i := 1; i < workers; i++ {
			assert.Same(t, got[0], got[i], "worker %d saw a different ServerSession", i)
		}
	})

	t.Run("Close", func(t *testing.T) {
		p := NewPool(PoolConfig{IdleTimeout: 30 * time.Minute, SweepInterval: time.Millisecond})
		sid := mustSessionID(t, SessionOptions{})

		sess, err := p.GetSession(sid)
		require.NoError(t, err)

		p.Close()
		assert.True(t, sess.Closed())
		assert.Equal(t, 0, p.Len())
		// Close twice is fine.
		p.Close()
	})
}
