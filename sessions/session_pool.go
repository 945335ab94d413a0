// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type poolEntry struct {
	sess *ServerSession
	// checkouts counts requests currently holding the session. The sweeper
	// never evicts an entry with live checkouts.
	checkouts int
}

// Pool owns the live server sessions, keyed by session id. It guarantees at
// most one ServerSession instance per id visible to callers at any instant,
// evicts idle sessions on a background sweep, and enforces an optional
// capacity limit.
type Pool struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*poolEntry

	maxSessions int
	idleTimeout time.Duration

	log *logrus.Entry

	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewPool returns a Pool configured by cfg. If cfg.SweepInterval is positive
// the idle sweeper starts immediately; Close stops it.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &Pool{
		sessions:    make(map[uuid.UUID]*poolEntry),
		maxSessions: cfg.MaxSessions,
		idleTimeout: cfg.IdleTimeout,
		log:         logger.WithField("component", "session-pool"),
		sweepDone:   make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go p.sweep(cfg.SweepInterval)
	}

	return p
}

// GetSession returns the server session for sid, creating one if none exists
// or if the existing one was closed. The returned session is checked out:
// the caller must pair this with ReturnSession once the request is done with
// it, or eviction of the id stalls.
func (p *Pool) GetSession(sid uuid.UUID) (*ServerSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.sessions[sid]; ok {
		if !e.sess.Closed() {
			e.checkouts++
			e.sess.touch()
			return e.sess, nil
		}
		// A closed id transparently gets a fresh session.
		delete(p.sessions, sid)
	}

	if p.maxSessions > 0 && len(p.sessions) >= p.maxSessions {
		return nil, ErrSessionLimit
	}

	sess, err := newServerSession(sid)
	if err != nil {
		return nil, err
	}
	p.sessions[sid] = &poolEntry{sess: sess, checkouts: 1}

	return sess, nil
}

// ReturnSession releases one checkout of sid. The session stays pooled for
// later requests; it only becomes eligible for idle eviction.
func (p *Pool) ReturnSession(sid uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.sessions[sid]; ok && e.checkouts > 0 {
		e.checkouts--
	}
}

// EndSession closes the server session for sid and removes it from the pool.
// Reusing the id afterwards creates a brand-new session.
func (p *Pool) EndSession(sid uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.sessions[sid]; ok {
		e.sess.close()
		delete(p.sessions, sid)
		p.log.WithField("sid", sid).Debug("session ended")
	}
}

// Len returns the number of pooled sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// EvictIdle closes and removes every session that has no live checkouts and
// has been idle longer than the configured timeout.
func (p *Pool) EvictIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sid, e := range p.sessions {
		if e.checkouts == 0 && e.sess.expired(p.idleTimeout) {
			e.sess.close()
			delete(p.sessions, sid)
			p.log.WithFields(logrus.Fields{
				"sid":      sid,
				"lastUsed": e.sess.LastUsed(),
			}).Debug("idle session evicted")
		}
	}
}

func (p *Pool) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.sweepDone:
			return
		case <-ticker.C:
			p.EvictIdle()
		}
	}
}

// Close stops the sweeper and closes all pooled sessions.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.sweepDone)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	for sid, e := range p.sessions {
		e.sess.close()
		delete(p.sessions, sid)
	}
}
