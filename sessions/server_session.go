// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Binary subtype of the standard UUID representation.
const uuidSubtype byte = 0x04

// ServerSession mirrors the server side of a logical session: the canonical
// session identifier, the transaction counter, and idle bookkeeping. One
// instance exists per session id at any time; the Pool owns it.
type ServerSession struct {
	sid        uuid.UUID
	identifier bson.Raw

	mu        sync.Mutex
	txnNumber int64

	lastUsed atomic.Int64 // unix milliseconds
	closed   atomic.Bool
}

func newServerSession(sid uuid.UUID) (*ServerSession, error) {
	identifier, err := marshalSessionID(sid)
	if err != nil {
		return nil, err
	}

	ss := &ServerSession{
		sid:        sid,
		identifier: identifier,
	}
	ss.touch()

	return ss, nil
}

// marshalSessionID builds the {id: Binary(4, sid)} document the server uses
// as the session identity. The encoding must stay bit-exact with the
// driver's standard UUID representation because the server compares
// identifiers as opaque binary values.
func marshalSessionID(sid uuid.UUID) (bson.Raw, error) {
	idDoc, err := bson.Marshal(bson.D{{Key: "id", Value: bson.Binary{Subtype: uuidSubtype, Data: sid[:]}}})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal session id %s", sid)
	}

	return bson.Raw(idDoc), nil
}

// SID returns the session id this server session was derived from.
func (ss *ServerSession) SID() uuid.UUID {
	return ss.sid
}

// Identifier returns the session identifier document and records the use for
// idle eviction.
func (ss *ServerSession) Identifier() bson.Raw {
	ss.touch()
	return ss.identifier
}

// TransactionNumber returns the current transaction counter.
func (ss *ServerSession) TransactionNumber() int64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.txnNumber
}

// AdvanceTransactionNumber increments the transaction counter by one and
// returns the new value. Used when a brand-new transaction starts on this
// session.
func (ss *ServerSession) AdvanceTransactionNumber() int64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.txnNumber++
	return ss.txnNumber
}

// AdvanceTransactionNumberTo sets the transaction counter to number. The
// counter only ever increases; advancing it to a value not strictly greater
// than the current one indicates a stale or corrupted pool entry and fails
// with a StateError, leaving the counter unchanged.
func (ss *ServerSession) AdvanceTransactionNumberTo(number int64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if number <= ss.txnNumber {
		return &StateError{
			SID: ss.sid,
			Msg: fmt.Sprintf("current transactionNumber is %d, cannot set it to %d", ss.txnNumber, number),
		}
	}
	ss.txnNumber = number

	return nil
}

// reconcileTransactionNumber catches the counter up to the number the
// cluster reported. The comparison and the advance hold the counter lock
// together so concurrent reconciliations of the same session that observed
// the same remote number serialize instead of failing each other, and a
// later request can never regress the counter below an earlier advancement.
func (ss *ServerSession) reconcileTransactionNumber(remote int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if remote > ss.txnNumber {
		ss.txnNumber = remote
	}
}

// LastUsed returns the time the session identifier was last read.
func (ss *ServerSession) LastUsed() time.Time {
	return time.UnixMilli(ss.lastUsed.Load())
}

func (ss *ServerSession) touch() {
	ss.lastUsed.Store(time.Now().UnixMilli())
}

// expired reports whether the session has sat idle longer than idleTimeout.
// A non-positive timeout means the limit is unknown, in which case the
// session counts as expired.
func (ss *ServerSession) expired(idleTimeout time.Duration) bool {
	if idleTimeout <= 0 {
		return true
	}
	return time.Since(ss.LastUsed()) > idleTimeout
}

func (ss *ServerSession) close() {
	ss.closed.Store(true)
}

// Closed reports whether the session has been closed. A closed session is
// never reopened; the pool creates a replacement instead.
func (ss *ServerSession) Closed() bool {
	return ss.closed.Load()
}
