// Package admission runs the battleground workflows that mutate state:
// game configuration bootstrap, battleground creation, player admission and
// lifecycle transitions.
//
// Every mutation runs inside one Store transaction. Token transfers go
// through the transaction's Ledger and the join event is appended to the
// transaction's outbox, so a failed gate anywhere leaves no partial effects.
package admission
