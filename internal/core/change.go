package core

import "time"

const (
	ChangeAdded   ChangeKind = "expense.added"
	ChangeDeleted ChangeKind = "expense.deleted"
	ChangeCleared ChangeKind = "ledger.cleared"
)

type (
	ChangeKind string

	// Change describes a mutation that has been persisted.
	Change struct {
		Kind ChangeKind
		IDs  []int64
		At   time.Time
	}
)
