// package repositories provides the persistence layer over SQLite.
//
// [UserRepository] and [SessionRepository] form the credential store: the durable
// source of truth for accounts, sessions, and OAuth tokens. [VisibilityRepository]
// and [TargetRepository] form the metadata overlay store: per-user flags layered
// onto remote playlist data at read time.
//
// Overlay writes rely on SQLite's ON CONFLICT clauses rather than application-level
// locking; multi-row operations run inside a single transaction.
package repositories
