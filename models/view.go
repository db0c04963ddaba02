package models

// CollectionView is what a consumer reads for a collection: the current
// records plus loading and error flags.
type CollectionView struct {
	Data    []Record
	Loading bool
	Err     error
}

// WriteResult is returned by every local write. Writes never fail by
// panicking or blocking on the network: Err is set for rejected writes and
// Queued reports that the change was stored for later replay.
type WriteResult struct {
	Data   Record
	Err    error
	Queued bool
}

// OperationFailure describes one queued operation that could not be applied
// during a drain.
type OperationFailure struct {
	Operation PendingOperation
	Err       error
	// Dropped is true when the failure was permanent and the operation was
	// removed from the queue.
	Dropped bool
}

// DrainReport aggregates the outcome of one queue drain.
type DrainReport struct {
	Succeeded int
	Failed    int
	// Deferred counts operations left in the queue because an earlier
	// operation of the same collection, or the insert they depend on, did not
	// go through.
	Deferred int
	Failures []OperationFailure
}

// Empty reports whether the drain had nothing to do.
func (r DrainReport) Empty() bool {
	return r.Succeeded == 0 && r.Failed == 0 && r.Deferred == 0
}
