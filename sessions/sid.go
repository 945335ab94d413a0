// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session options ride in the two low bits of the id's last byte, so any
// worker can resolve them from the id alone, without shared state.
const (
	flagCausallyConsistent byte = 0x01
	flagTransacted         byte = 0x02
)

// SessionOptions are the per-session-id options negotiated with the client.
// They are immutable for the lifetime window of the id.
type SessionOptions struct {
	CausallyConsistent bool
	Transacted         bool
}

// NewSessionID returns a new version 4 UUID session id with opts encoded in
// its low bits.
func NewSessionID(opts SessionOptions) (uuid.UUID, error) {
	sid, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "generate session id")
	}

	sid[15] &^= flagCausallyConsistent | flagTransacted
	if opts.CausallyConsistent {
		sid[15] |= flagCausallyConsistent
	}
	if opts.Transacted {
		sid[15] |= flagTransacted
	}

	return sid, nil
}

// ParseSessionID parses the session id carried by a request. Malformed ids
// and UUIDs that are not version 4 fail with ErrInvalidSessionID.
func ParseSessionID(s string) (uuid.UUID, error) {
	sid, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Wrapf(ErrInvalidSessionID, "%q: %v", s, err)
	}
	if sid.Version() != 4 {
		return uuid.Nil, errors.Wrapf(ErrInvalidSessionID, "%q: version %d UUID", s, sid.Version())
	}

	return sid, nil
}

// OptionsStore resolves the SessionOptions for a session id. Resolve is a
// pure lookup: it has no side effects and fails only on malformed ids.
type OptionsStore interface {
	Resolve(sid uuid.UUID) (SessionOptions, error)
}

// SidStore resolves session options by decoding the flag bits encoded in the
// session id itself.
type SidStore struct{}

var _ OptionsStore = SidStore{}

// Resolve decodes the options from sid.
func (SidStore) Resolve(sid uuid.UUID) (SessionOptions, error) {
	if sid.Version() != 4 {
		return SessionOptions{}, errors.Wrapf(ErrInvalidSessionID, "%q: version %d UUID", sid, sid.Version())
	}

	return SessionOptions{
		CausallyConsistent: sid[15]&flagCausallyConsistent != 0,
		Transacted:         sid[15]&flagTransacted != 0,
	}, nil
}
