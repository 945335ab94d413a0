// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Server error codes distinguishing how a transaction concluded.
const (
	codeNoSuchTransaction    = 251
	codeTransactionCommitted = 256
)

// TxnOracle queries the cluster for the authoritative transaction state of a
// session. It is the single external call in the reconciliation path; its
// failure is surfaced, never defaulted to NONE.
type TxnOracle interface {
	Fetch(ctx context.Context, cs *ClientSession) (Txn, error)
}

// ClusterOracle resolves the transaction status against a live cluster in
// two steps: a $currentOp aggregation to learn the transaction number the
// server holds for the session, then a one-document find issued inside that
// transaction. The find succeeding means the transaction is still open; the
// server otherwise answers with an error code naming how it concluded.
type ClusterOracle struct {
	cluster *Cluster

	// Namespace of the probe find. The query is a limit-1 find, so any
	// readable namespace works; it does not have to exist.
	probeDatabase   string
	probeCollection string
}

var _ TxnOracle = (*ClusterOracle)(nil)

// NewClusterOracle returns a ClusterOracle querying through cluster.
func NewClusterOracle(cluster *Cluster) *ClusterOracle {
	return &ClusterOracle{
		cluster:         cluster,
		probeDatabase:   "restgate",
		probeCollection: "txnprobe",
	}
}

// Fetch implements TxnOracle. The caller's context deadline bounds both
// server round trips; on failure no local session state has been touched.
func (o *ClusterOracle) Fetch(ctx context.Context, cs *ClientSession) (Txn, error) {
	number, found, err := o.sessionTransactionNumber(ctx, cs)
	if err != nil {
		return Txn{}, asFetchError(err)
	}
	if !found {
		return Txn{State: TxnNone}, nil
	}

	state, err := o.probeTransactionState(ctx, cs, number)
	if err != nil {
		return Txn{}, asFetchError(err)
	}

	return Txn{Number: number, State: state}, nil
}

// sessionTransactionNumber scans $currentOp, idle sessions included, for the
// transaction number the server associates with the session. found is false
// when the server never saw a transaction on this session.
func (o *ClusterOracle) sessionTransactionNumber(ctx context.Context, cs *ClientSession) (int64, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$currentOp", Value: bson.D{
			{Key: "allUsers", Value: true},
			{Key: "idleSessions", Value: true},
		}}},
		{{Key: "$match", Value: bson.D{
			{Key: "lsid.id", Value: bson.Binary{Subtype: uuidSubtype, Data: cs.SID[:]}},
			{Key: "transaction.parameters.txnNumber", Value: bson.D{{Key: "$exists", Value: true}}},
		}}},
	}

	cur, err := o.cluster.Client().Database("admin").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, false, errors.Wrapf(err, "currentOp for session %s", cs.SID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var number int64
	var found bool
	for cur.Next(ctx) {
		val, err := cur.Current.LookupErr("transaction", "parameters", "txnNumber")
		if err != nil {
			continue
		}
		if n, ok := val.AsInt64OK(); ok && (!found || n > number) {
			number = n
			found = true
		}
	}
	if err := cur.Err(); err != nil {
		return 0, false, errors.Wrapf(err, "currentOp for session %s", cs.SID)
	}

	return number, found, nil
}

// probeTransactionState issues a limit-1 find inside the session's
// transaction and classifies the server's answer.
func (o *ClusterOracle) probeTransactionState(ctx context.Context, cs *ClientSession, number int64) (TxnState, error) {
	cmd := bson.D{
		{Key: "find", Value: o.probeCollection},
		{Key: "limit", Value: int64(1)},
		{Key: "singleBatch", Value: true},
		{Key: "lsid", Value: cs.Server.Identifier()},
		{Key: "txnNumber", Value: number},
		{Key: "autocommit", Value: false},
	}

	res := o.cluster.Client().Database(o.probeDatabase).RunCommand(ctx, cmd)

	return txnStateFromProbe(res.Err())
}

// txnStateFromProbe maps the probe find outcome to a transaction state. A
// successful find joined the open transaction; NoSuchTransaction (251) and
// TransactionCommitted (256) name a concluded one.
func txnStateFromProbe(err error) (TxnState, error) {
	if err == nil {
		return TxnInProgress, nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeNoSuchTransaction:
			return TxnAborted, nil
		case codeTransactionCommitted:
			return TxnCommitted, nil
		}
	}

	return TxnNone, errors.Wrap(err, "transaction state probe")
}

// asFetchError classifies a failed fetch. Connectivity and deadline
// failures are retryable by the caller; anything else propagates as-is.
func asFetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) {
		return &TransientError{Wrapped: err}
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return &TransientError{Wrapped: err}
	}

	return err
}
