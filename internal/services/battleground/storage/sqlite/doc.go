// Package sqlite provides the SQLite-backed battleground store.
//
// Transactions are opened with BEGIN IMMEDIATE, so concurrent admissions
// serialize on the database write lock and every gate inside a transaction
// reads committed state. Identities and hashes are stored as lowercase hex;
// uint64 amounts are stored as decimal text because SQLite integers are
// signed.
package sqlite
