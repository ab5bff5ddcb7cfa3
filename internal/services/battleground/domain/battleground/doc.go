// Package battleground defines the battleground data model: identities, the
// singleton game configuration, battlegrounds with their lifecycle status,
// and the participants admitted to them.
package battleground
