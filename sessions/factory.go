// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Factory reconciles client sessions: given a session id, it produces a
// ClientSession whose transaction counter and transaction view agree with
// the cluster. All collaborators are passed in at construction time.
type Factory struct {
	cluster *Cluster
	pool    *Pool
	store   OptionsStore
	oracle  TxnOracle
	log     *logrus.Entry
}

// NewFactory builds a Factory. A nil logger falls back to the standard
// logrus logger.
func NewFactory(cluster *Cluster, pool *Pool, store OptionsStore, oracle TxnOracle, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Factory{
		cluster: cluster,
		pool:    pool,
		store:   store,
		oracle:  oracle,
		log:     logger.WithField("component", "session-factory"),
	}
}

// AcquireClientSession resolves the options for sid, checks the pooled
// server session out, and, for transacted sessions, reconciles the local
// transaction counter and state against the cluster. The returned
// ClientSession is pinned in the pool until EndSession is called on it.
//
// Causal consistency is forced on regardless of the id's flag: the gateway
// requires read-your-own-writes across requests. Transaction defaults merge
// the cluster's ambient read concern, write concern, and read preference.
func (f *Factory) AcquireClientSession(ctx context.Context, sid uuid.UUID) (*ClientSession, error) {
	opts, err := f.store.Resolve(sid)
	if err != nil {
		return nil, err
	}

	consistent := true
	cs, err := NewClientSession(f.pool, sid, &ClientOptions{
		CausalConsistency:     &consistent,
		DefaultReadConcern:    f.cluster.ReadConcern(),
		DefaultWriteConcern:   f.cluster.WriteConcern(),
		DefaultReadPreference: f.cluster.ReadPreference(),
	})
	if err != nil {
		return nil, err
	}
	cs.Transacted = opts.Transacted

	if !opts.Transacted {
		// The handler pipeline may still start an ad-hoc transaction later;
		// nothing to reconcile now.
		return cs, nil
	}

	// The pool lock is not held here: the fetch blocks only this request.
	remote, err := f.oracle.Fetch(ctx, cs)
	if err != nil {
		cs.EndSession()
		return nil, err
	}

	cs.TxnServerStatus = &remote
	cs.Server.reconcileTransactionNumber(remote.Number)

	switch remote.State {
	case TxnInProgress:
		// A transaction is already open server-side. Later operations on
		// this request continue it instead of starting a new one.
		cs.TransactionState = InProgress
		cs.MessageSentInCurrentTransaction = true
	case TxnAborted, TxnCommitted:
		// Concluded remotely. Starting a new transaction is the handler
		// pipeline's call, on the next write.
	case TxnNone:
	default:
		cs.EndSession()
		return nil, &StateError{
			SID: sid,
			Msg: fmt.Sprintf("unknown transaction status %s", remote),
		}
	}

	f.log.WithFields(logrus.Fields{
		"sid":       sid,
		"txnNumber": cs.Server.TransactionNumber(),
		"state":     remote.State,
	}).Debug("session reconciled")

	return cs, nil
}

// EndSession terminates the session for sid: the pooled server session is
// closed immediately and the id becomes eligible for a brand-new session on
// reuse.
func (f *Factory) EndSession(sid uuid.UUID) {
	f.pool.EndSession(sid)
}
