// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidSessionID is returned when a session id is malformed or is not a
// version 4 UUID.
var ErrInvalidSessionID = errors.New("invalid session id")

// ErrSessionLimit is returned by the pool when creating one more server
// session would exceed the configured capacity.
var ErrSessionLimit = errors.New("server session pool is at capacity")

// ErrSessionEnded is the error returned when the session has been ended.
var ErrSessionEnded = errors.New("ended session was used")

// ErrNoTransactStarted is the error returned if a transaction operation is
// called when no transaction has started.
var ErrNoTransactStarted = errors.New("no transaction started")

// ErrTransactInProgress is the error returned if a transaction is started
// while another transaction is in progress.
var ErrTransactInProgress = errors.New("transaction already in progress")

// ErrAbortAfterCommit is returned when abort is called after a commit.
var ErrAbortAfterCommit = errors.New("cannot call abortTransaction after calling commitTransaction")

// ErrAbortTwice is returned if abort is called after transaction is already aborted.
var ErrAbortTwice = errors.New("cannot call abortTransaction twice")

// ErrCommitAfterAbort is returned if commit is called after an abort.
var ErrCommitAfterAbort = errors.New("cannot call commitTransaction after calling abortTransaction")

// StateError signals an inconsistency between the pooled session state and
// the state the cluster reported, such as a transaction counter that would
// move backwards or a transaction state this package does not recognize. It
// is fatal for the request and must not be masked by a default.
type StateError struct {
	SID uuid.UUID
	Msg string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session %s: %s", e.SID, e.Msg)
}

// TransientError wraps an infrastructure failure, typically the transaction
// status fetch failing due to cluster connectivity or the request deadline.
// Callers may retry the whole request; no local session state was mutated.
type TransientError struct {
	Wrapped error
}

func (e *TransientError) Error() string {
	return "transient session error: " + e.Wrapped.Error()
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Wrapped
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
