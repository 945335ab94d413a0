// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	t.Run("OptionsRoundTrip", func(t *testing.T) {
		testCases := []SessionOptions{
			{},
			{CausallyConsistent: true},
			{Transacted: true},
			{CausallyConsistent: true, Transacted: true},
		}

		for _, opts := range testCases {
			sid, err := NewSessionID(opts)
			require.NoError(t, err)
			assert.EqualValues(t, 4, sid.Version(), "session id must stay a v4 UUID")

			resolved, err := SidStore{}.Resolve(sid)
			require.NoError(t, err)
			assert.Equal(t, opts, resolved)
		}
	})

	t.Run("ParseValid", func(t *testing.T) {
		sid, err := NewSessionID(SessionOptions{Transacted: true})
		require.NoError(t, err)

		parsed, err := ParseSessionID(sid.String())
		require.NoError(t, err)
		assert.Equal(t, sid, parsed)
	})

	t.Run("ParseMalformed", func(t *testing.T) {
		_, err := ParseSessionID("not-a-uuid")
		assert.True(t, errors.Is(err, ErrInvalidSessionID), "expected ErrInvalidSessionID, got %v", err)
	})

	t.Run("ParseWrongVersion", func(t *testing.T) {
		// A v1 UUID is well-formed but not a valid session id.
		v1 := "c232ab00-9414-11ec-b3c8-9f68deced846"
		_, err := ParseSessionID(v1)
		assert.True(t, errors.Is(err, ErrInvalidSessionID), "expected ErrInvalidSessionID, got %v", err)
	})

	t.Run("ResolveZeroID", func(t *testing.T) {
		_, err := SidStore{}.Resolve(uuid.Nil)
		assert.True(t, errors.Is(err, ErrInvalidSessionID), "expected ErrInvalidSessionID, got %v", err)
	})
}
