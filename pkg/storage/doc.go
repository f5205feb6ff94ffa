/*
Package storage is the persistence capability interface for the bot
manager and its two implementations.

The Store interface covers the three records the manager touches: users
(read, lazily created with a default quota), meetings (read-only, owned by
the booking subsystem), and sessions (written once per bot start,
best-effort).

BoltStore is the embedded default: JSON records in named buckets, one
writer, suitable for single-node deployments. PostgresStore joins the
shared deployment database (pgx pool, plain SQL) when DATABASE_URL is set.
Session rows are not transactionally tied to workload creation; see the
bot package for the partial-failure policy.
*/
package storage
