// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package sessions bridges MongoDB logical sessions and multi-statement
// transactions across stateless HTTP requests.
//
// Every request carries an opaque session id. On each request the gateway
// rebuilds a ClientSession for that id: it resolves the session options
// encoded in the id, checks the pooled ServerSession out of the Pool, and,
// for transacted sessions, reconciles the local transaction counter against
// the authoritative state reported by the cluster. The cluster is the only
// source of truth for whether a transaction is currently open; the pool only
// caches the transaction counter so the gateway never reissues a number the
// server has already superseded.
package sessions
