// Package directory provides the Redis-backed tokenguard.UserDirectory.
//
// Users are stored as JSON blobs keyed by id. Username and email uniqueness
// is enforced with index keys written by a Lua script on insert and moved
// under WATCH on update.
package directory
