// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

// journal records undo actions for the state changes of one operation.
// Reverting replays them newest first.
type journal struct {
	entries []func()
}

func (j *journal) append(undo func()) {
	j.entries = append(j.entries, undo)
}

func (j *journal) revert() {
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i]()
	}
	j.entries = j.entries[:0]
}

func (j *journal) length() int {
	return len(j.entries)
}
