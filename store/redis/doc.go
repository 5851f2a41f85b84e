// Package redis implements store.Store on Redis.
//
// Each job record is a hash at jobward:job:<id> with its message log in
// an adjacent list, and the set jobward:jobs indexes all record IDs. The
// run-lock registry and the disabled-types set are two hashes; acquisition
// runs as a Lua script so the conditions and the write execute atomically
// on the server.
//
// Suited to deployments that already run Redis and accept its persistence
// trade-offs for job history. Mongo remains the primary backend.
package redis
