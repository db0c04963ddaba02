package models

// RecordRequest is one backend call scoped to a user and a collection. ID
// and Payload are set depending on the operation.
type RecordRequest struct {
	UserID     string
	Collection Collection
	ID         string
	Payload    Record
}
