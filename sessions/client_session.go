// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// TransactionState indicates the state of the session's transaction as seen
// by this process.
type TransactionState uint8

// Client session transaction states.
const (
	None TransactionState = iota
	Starting
	InProgress
	Committed
	Aborted
)

func (s TransactionState) String() string {
	switch s {
	case None:
		return "none"
	case Starting:
		return "starting"
	case InProgress:
		return "in progress"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ClientSession is the per-request reconciled view of a session: the pooled
// ServerSession, the merged options, and the last-observed server-side
// transaction descriptor. It is constructed fresh on every request and never
// shared across requests.
type ClientSession struct {
	// SID is the session id this view was reconciled for.
	SID uuid.UUID
	// Server is the pooled server session. Exactly one instance exists per
	// session id; the transaction counter on it is shared across requests.
	Server *ServerSession

	// Consistent is the effective causal consistency setting.
	Consistent bool
	// Transacted is true when the session id declares multi-statement
	// transaction use.
	Transacted bool

	// ClusterTime and OperationTime carry the causal consistency tokens
	// gossiped with the cluster.
	ClusterTime   bson.Raw
	OperationTime *bson.Timestamp

	// TxnServerStatus is the transaction descriptor the cluster reported
	// during reconciliation. Nil when the session is not transacted.
	TxnServerStatus *Txn
	// MessageSentInCurrentTransaction is true once this process has
	// coordinated with the server inside the currently open transaction, or
	// when reconciliation found the transaction already open server-side.
	MessageSentInCurrentTransaction bool

	// TransactionState tracks the locally driven transaction lifecycle.
	TransactionState TransactionState

	defaultTransactionOptions *TransactionOptions
	currentTransactionOptions *TransactionOptions

	pool  *Pool
	ended bool
}

// NewClientSession checks the server session for sid out of pool and wraps
// it in a fresh ClientSession. Causal consistency defaults to true when no
// option says otherwise.
func NewClientSession(pool *Pool, sid uuid.UUID, opts ...*ClientOptions) (*ClientSession, error) {
	merged := mergeClientOptions(opts...)

	server, err := pool.GetSession(sid)
	if err != nil {
		return nil, err
	}

	cs := &ClientSession{
		SID:        sid,
		Server:     server,
		Consistent: true,
		defaultTransactionOptions: &TransactionOptions{
			ReadConcern:    merged.DefaultReadConcern,
			WriteConcern:   merged.DefaultWriteConcern,
			ReadPreference: merged.DefaultReadPreference,
		},
		pool: pool,
	}
	if merged.CausalConsistency != nil {
		cs.Consistent = *merged.CausalConsistency
	}

	return cs, nil
}

// TransactionRunning reports whether this process considers a transaction
// open on the session.
func (cs *ClientSession) TransactionRunning() bool {
	return cs.TransactionState == Starting || cs.TransactionState == InProgress
}

// CurrentTransactionOptions returns the options of the running transaction,
// or the session defaults when none is running.
func (cs *ClientSession) CurrentTransactionOptions() *TransactionOptions {
	if cs.currentTransactionOptions != nil {
		return cs.currentTransactionOptions
	}
	return cs.defaultTransactionOptions
}

// AdvanceClusterTime updates the session's cluster time if clusterTime is
// greater than the current one.
func (cs *ClientSession) AdvanceClusterTime(clusterTime bson.Raw) error {
	if cs.ended {
		return ErrSessionEnded
	}
	cs.ClusterTime = MaxClusterTime(cs.ClusterTime, clusterTime)
	return nil
}

// AdvanceOperationTime updates the session's operation time if opTime is
// greater than the current one.
func (cs *ClientSession) AdvanceOperationTime(opTime *bson.Timestamp) error {
	if cs.ended {
		return ErrSessionEnded
	}
	if opTime == nil {
		return nil
	}

	if cs.OperationTime == nil ||
		opTime.T > cs.OperationTime.T ||
		(opTime.T == cs.OperationTime.T && opTime.I > cs.OperationTime.I) {
		cs.OperationTime = opTime
	}

	return nil
}

// UpdateUseTime marks the server session as used.
func (cs *ClientSession) UpdateUseTime() error {
	if cs.ended {
		return ErrSessionEnded
	}
	cs.Server.touch()
	return nil
}

// StartTransaction declares a new transaction on the session. The first
// command applied afterwards advances the transaction number and opens the
// transaction server-side.
func (cs *ClientSession) StartTransaction(opts *TransactionOptions) error {
	if cs.ended {
		return ErrSessionEnded
	}
	if cs.TransactionRunning() {
		return ErrTransactInProgress
	}

	cs.currentTransactionOptions = mergeTransactionOptions(cs.defaultTransactionOptions, opts)
	cs.TransactionState = Starting
	cs.MessageSentInCurrentTransaction = false

	return nil
}

// CommitTransaction updates the transaction state to committed. Committing
// an already committed transaction is allowed (commit retry).
func (cs *ClientSession) CommitTransaction() error {
	if cs.ended {
		return ErrSessionEnded
	}
	switch cs.TransactionState {
	case None:
		return ErrNoTransactStarted
	case Aborted:
		return ErrCommitAfterAbort
	}

	cs.TransactionState = Committed
	cs.currentTransactionOptions = nil

	return nil
}

// AbortTransaction updates the transaction state to aborted.
func (cs *ClientSession) AbortTransaction() error {
	if cs.ended {
		return ErrSessionEnded
	}
	switch cs.TransactionState {
	case None:
		return ErrNoTransactStarted
	case Committed:
		return ErrAbortAfterCommit
	case Aborted:
		return ErrAbortTwice
	}

	cs.TransactionState = Aborted
	cs.currentTransactionOptions = nil

	return nil
}

// ApplyCommand records that a command was sent on the session. A starting
// transaction advances the server session's transaction number and moves to
// in progress.
func (cs *ClientSession) ApplyCommand() error {
	if cs.ended {
		return ErrSessionEnded
	}

	cs.Server.touch()

	switch cs.TransactionState {
	case Starting:
		cs.Server.AdvanceTransactionNumber()
		cs.TransactionState = InProgress
		cs.MessageSentInCurrentTransaction = true
	case InProgress:
		cs.MessageSentInCurrentTransaction = true
	}

	return nil
}

// EndSession returns the server session to the pool. The ClientSession must
// not be used afterwards.
func (cs *ClientSession) EndSession() {
	if cs.ended {
		return
	}
	cs.ended = true
	cs.pool.ReturnSession(cs.SID)
}

// MaxClusterTime compares 2 cluster time documents and returns the most
// recent one.
func MaxClusterTime(ct1, ct2 bson.Raw) bson.Raw {
	epoch1, ord1 := getClusterTime(ct1)
	epoch2, ord2 := getClusterTime(ct2)

	switch {
	case epoch1 > epoch2:
		return ct1
	case epoch1 < epoch2:
		return ct2
	case ord1 > ord2:
		return ct1
	case ord1 < ord2:
		return ct2
	}

	return ct1
}

func getClusterTime(clusterTime bson.Raw) (uint32, uint32) {
	if clusterTime == nil {
		return 0, 0
	}

	val, err := clusterTime.LookupErr("$clusterTime", "clusterTime")
	if err != nil {
		return 0, 0
	}
	t, i, ok := val.TimestampOK()
	if !ok {
		return 0, 0
	}

	return t, i
}
