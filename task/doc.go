// Package task provides an in-memory ledger of assignable, trackable units
// of work. The Manager owns every Task; mutations go through its CRUD
// operations and bump the task's updated timestamp. Persistence is an
// external concern.
package task
