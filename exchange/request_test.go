// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package exchange

import (
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/restgate/restgate/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	sid, err := sessions.NewSessionID(sessions.SessionOptions{Transacted: true})
	require.NoError(t, err)

	t.Run("SessionIDFromQuery", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/db/coll?sid="+sid.String(), nil)
		req := NewRequest(r)

		got, ok, err := req.SessionID()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sid, got)
	})

	t.Run("SessionIDFromHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/db/coll", nil)
		r.Header.Set(SessionIDHeader, sid.String())
		req := NewRequest(r)

		got, ok, err := req.SessionID()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sid, got)
	})

	t.Run("NoSessionID", func(t *testing.T) {
		req := NewRequest(httptest.NewRequest("GET", "/db/coll", nil))

		_, ok, err := req.SessionID()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MalformedSessionID", func(t *testing.T) {
		req := NewRequest(httptest.NewRequest("GET", "/db/coll?sid=nope", nil))

		_, _, err := req.SessionID()
		assert.True(t, errors.Is(err, sessions.ErrInvalidSessionID), "expected ErrInvalidSessionID, got %v", err)
	})

	t.Run("XForwardedHeaders", func(t *testing.T) {
		req := NewRequest(httptest.NewRequest("GET", "/db/coll", nil))

		assert.Nil(t, req.XForwardedHeaders())

		req.AddXForwardedHeader("Account-Id", "alice")
		req.AddXForwardedHeader("Roles", "admin")
		req.AddXForwardedHeader("Roles", "user")

		assert.Equal(t, map[string][]string{
			"Account-Id": {"alice"},
			"Roles":      {"admin", "user"},
		}, req.XForwardedHeaders())
	})

	t.Run("ContentType", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/db/coll", nil)
		r.Header.Set("Content-Type", "application/json")
		req := NewRequest(r)

		assert.True(t, req.IsContentTypeJSON())
		assert.Equal(t, "POST", req.Method())
	})
}
