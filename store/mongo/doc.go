// Package mongo implements store.Store on MongoDB.
//
// Job records live in the "jobinfo" collection, one document per
// execution. The run-lock registry and the disabled-types set share one
// singleton document in "jobmetadata", so lock acquisition is a single
// FindOneAndUpdate and therefore atomic across concurrent callers and
// process instances.
//
// Usage:
//
//	client, err := mongod.Connect(options.Client().ApplyURI(uri))
//	s := mongo.New(client.Database("jobward"))
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo
