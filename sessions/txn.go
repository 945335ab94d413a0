// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import "fmt"

// TxnState is the transaction state of a session as reported by the cluster.
type TxnState uint8

// The states a server-side transaction can be in.
const (
	TxnNone TxnState = iota
	TxnInProgress
	TxnCommitted
	TxnAborted
)

func (s TxnState) String() string {
	switch s {
	case TxnNone:
		return "NONE"
	case TxnInProgress:
		return "IN"
	case TxnCommitted:
		return "COMMITTED"
	case TxnAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("TxnState(%d)", uint8(s))
	}
}

// Txn is the authoritative transaction descriptor of a session at the moment
// the cluster was queried: a snapshot, not a subscription.
type Txn struct {
	Number int64
	State  TxnState
}

func (t Txn) String() string {
	return fmt.Sprintf("txn %d %s", t.Number, t.State)
}
