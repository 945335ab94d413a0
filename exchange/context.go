// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package exchange

import "context"

type contextKey struct{}

// WithRequest returns a context carrying req.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, contextKey{}, req)
}

// FromContext returns the Request attached to ctx.
func FromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(contextKey{}).(*Request)
	return req, ok
}
