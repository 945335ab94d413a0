// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sessions

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// Cluster is the immutable handle to the database collaborator: the driver
// client plus the ambient read concern, write concern, and read preference
// that fill any gap a session has not overridden. It is passed explicitly to
// the pool, oracle, and factory at construction time; there is no package
// level client.
type Cluster struct {
	client       *mongo.Client
	readConcern  *readconcern.ReadConcern
	writeConcern *writeconcern.WriteConcern
	readPref     *readpref.ReadPref
}

// NewCluster builds a Cluster around client. Nil concerns fall back to the
// gateway defaults: local reads, majority writes, primary read preference.
func NewCluster(
	client *mongo.Client,
	rc *readconcern.ReadConcern,
	wc *writeconcern.WriteConcern,
	rp *readpref.ReadPref,
) *Cluster {
	if rc == nil {
		rc = readconcern.Local()
	}
	if wc == nil {
		wc = writeconcern.Majority()
	}
	if rp == nil {
		rp = readpref.Primary()
	}

	return &Cluster{
		client:       client,
		readConcern:  rc,
		writeConcern: wc,
		readPref:     rp,
	}
}

// Client returns the driver client.
func (c *Cluster) Client() *mongo.Client {
	return c.client
}

// ReadConcern returns the ambient read concern.
func (c *Cluster) ReadConcern() *readconcern.ReadConcern {
	return c.readConcern
}

// WriteConcern returns the ambient write concern.
func (c *Cluster) WriteConcern() *writeconcern.WriteConcern {
	return c.writeConcern
}

// ReadPreference returns the ambient read preference.
func (c *Cluster) ReadPreference() *readpref.ReadPref {
	return c.readPref
}
