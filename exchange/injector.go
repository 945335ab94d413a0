// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package exchange

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/restgate/restgate/sessions"
	"github.com/sirupsen/logrus"
)

// SessionInjector is the pipeline stage that reconciles the client session
// for requests carrying a session id and attaches it to the request context.
// Sessionless requests pass through untouched.
type SessionInjector struct {
	factory *sessions.Factory
	next    http.Handler
	log     *logrus.Entry
}

// NewSessionInjector wraps next with session reconciliation through factory.
func NewSessionInjector(factory *sessions.Factory, next http.Handler, logger *logrus.Logger) *SessionInjector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SessionInjector{
		factory: factory,
		next:    next,
		log:     logger.WithField("component", "session-injector"),
	}
}

func (si *SessionInjector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r)

	sid, ok, err := req.SessionID()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if ok {
		cs, err := si.factory.AcquireClientSession(r.Context(), sid)
		if err != nil {
			si.log.WithField("sid", sid).WithError(err).Warn("session reconciliation failed")
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		defer cs.EndSession()
		req.SetClientSession(cs)
	}

	si.next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), req)))
}

// statusFor maps the session error taxonomy to protocol responses.
func statusFor(err error) int {
	var stateErr *sessions.StateError

	switch {
	case errors.Is(err, sessions.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrSessionLimit):
		return http.StatusTooManyRequests
	case sessions.IsTransient(err):
		return http.StatusBadGateway
	case errors.As(err, &stateErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
