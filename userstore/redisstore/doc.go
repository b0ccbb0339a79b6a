// Package redisstore implements authkit.UserStore on Redis.
//
// Each user is a Redis hash keyed by ID, with two derived indexes: an
// email key for login lookups and a digest key per outstanding action
// token for redemption lookups. Index keys hold only the user ID.
//
// Conditional updates (token redemption, token replacement) run inside
// WATCH/MULTI transactions with a bounded retry loop, so the single-use
// guarantee holds under concurrent redemption attempts.
//
// This package exists as a reference adapter and for integration tests;
// production deployments typically implement authkit.UserStore over
// their primary document store instead.
package redisstore
