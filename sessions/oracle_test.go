// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestTxnStateFromProbe(t *testing.T) {
	t.Run("SuccessMeansInProgress", func(t *testing.T) {
		state, err := txnStateFromProbe(nil)
		require.NoError(t, err)
		assert.Equal(t, TxnInProgress, state)
	})

	t.Run("NoSuchTransactionMeansAborted", func(t *testing.T) {
		cmdErr := mongo.CommandError{Code: codeNoSuchTransaction, Name: "NoSuchTransaction"}
		state, err := txnStateFromProbe(cmdErr)
		require.NoError(t, err)
		assert.Equal(t, TxnAborted, state)
	})

	t.Run("TransactionCommittedMeansCommitted", func(t *testing.T) {
		cmdErr := mongo.CommandError{Code: codeTransactionCommitted, Name: "TransactionCommitted"}
		state, err := txnStateFromProbe(cmdErr)
		require.NoError(t, err)
		assert.Equal(t, TxnCommitted, state)
	})

	t.Run("OtherErrorsPropagate", func(t *testing.T) {
		cmdErr := mongo.CommandError{Code: 13, Name: "Unauthorized"}
		_, err := txnStateFromProbe(cmdErr)
		require.Error(t, err)

		var ce mongo.CommandError
		require.True(t, errors.As(err, &ce), "probe error must carry the server error, got %v", err)
		assert.EqualValues(t, 13, ce.Code)
	})
}

func TestAsFetchError(t *testing.T) {
	t.Run("DeadlineIsTransient", func(t *testing.T) {
		err := asFetchError(errors.Wrap(context.DeadlineExceeded, "currentOp"))
		assert.True(t, IsTransient(err), "expected transient, got %v", err)
	})

	t.Run("CancellationIsTransient", func(t *testing.T) {
		err := asFetchError(context.Canceled)
		assert.True(t, IsTransient(err), "expected transient, got %v", err)
	})

	t.Run("TransientTransactionLabelIsTransient", func(t *testing.T) {
		cmdErr := mongo.CommandError{
			Code:   112,
			Name:   "WriteConflict",
			Labels: []string{"TransientTransactionError"},
		}
		err := asFetchError(cmdErr)
		assert.True(t, IsTransient(err), "expected transient, got %v", err)
	})

	t.Run("OtherErrorsAreNotTransient", func(t *testing.T) {
		orig := errors.New("unknown txn status")
		err := asFetchError(orig)
		assert.False(t, IsTransient(err))
		assert.Equal(t, orig, err)
	})
}

func TestTxnString(t *testing.T) {
	assert.Equal(t, "NONE", TxnNone.String())
	assert.Equal(t, "IN", TxnInProgress.String())
	assert.Equal(t, "COMMITTED", TxnCommitted.String())
	assert.Equal(t, "ABORTED", TxnAborted.String())
	assert.Equal(t, "txn 5 IN", Txn{Number: 5, State: TxnInProgress}.String())
}
