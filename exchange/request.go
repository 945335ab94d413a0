// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package exchange carries the per-request state of the gateway pipeline as
// a single typed value. Side data that handlers need (start time, forwarded
// headers, pipeline branch, the reconciled client session) lives in named
// fields on Request rather than in a generic attachment registry.
package exchange

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/restgate/restgate/sessions"
)

// Header and query parameter carrying the session id.
const (
	SessionIDHeader = "Session-Id"
	SessionIDParam  = "sid"
)

// PipelineBranchInfo names the pipeline branch handling the exchange:
// service, proxy, or static resource.
type PipelineBranchInfo struct {
	Branch string
	Name   string
}

// Request wraps an inbound http.Request with the gateway's request-scoped
// state.
type Request struct {
	// StartTime is when the gateway accepted the request.
	StartTime time.Time
	// Pipeline identifies the branch handling the request, when known.
	Pipeline *PipelineBranchInfo

	r                 *http.Request
	xforwardedHeaders map[string][]string
	session           *sessions.ClientSession
}

// NewRequest wraps r, stamping the start time.
func NewRequest(r *http.Request) *Request {
	return &Request{
		StartTime: time.Now(),
		r:         r,
	}
}

// Method returns the request method.
func (req *Request) Method() string {
	return req.r.Method
}

// ContentType returns the Content-Type request header.
func (req *Request) ContentType() string {
	return req.r.Header.Get("Content-Type")
}

// IsContentTypeJSON reports whether the request content is JSON.
func (req *Request) IsContentTypeJSON() bool {
	return req.ContentType() == "application/json"
}

// AddXForwardedHeader records an X-Forwarded-[key] value to pass to the
// backend information otherwise lost proxying the request.
func (req *Request) AddXForwardedHeader(key, value string) {
	if req.xforwardedHeaders == nil {
		req.xforwardedHeaders = make(map[string][]string)
	}
	req.xforwardedHeaders[key] = append(req.xforwardedHeaders[key], value)
}

// XForwardedHeaders returns the recorded X-Forwarded headers.
func (req *Request) XForwardedHeaders() map[string][]string {
	return req.xforwardedHeaders
}

// SessionID extracts the session id from the sid query parameter or the
// Session-Id header. ok is false when the request carries no session id; a
// present but malformed id is an error.
func (req *Request) SessionID() (sid uuid.UUID, ok bool, err error) {
	raw := req.r.URL.Query().Get(SessionIDParam)
	if raw == "" {
		raw = req.r.Header.Get(SessionIDHeader)
	}
	if raw == "" {
		return uuid.Nil, false, nil
	}

	sid, err = sessions.ParseSessionID(raw)
	if err != nil {
		return uuid.Nil, false, err
	}

	return sid, true, nil
}

// SetClientSession attaches the reconciled client session.
func (req *Request) SetClientSession(cs *sessions.ClientSession) {
	req.session = cs
}

// ClientSession returns the attached client session, or nil for a
// sessionless request.
func (req *Request) ClientSession() *sessions.ClientSession {
	return req.session
}
