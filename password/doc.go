// Package password implements the slow, salted secret hasher used for
// account passwords. Digests are Argon2id in PHC string form; verification
// is constant time. Opaque action and refresh tokens do NOT use this
// package — they are high-entropy values digested with a fast hash by
// the internal token package.
package password
