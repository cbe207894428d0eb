package core

// EventAction names the write that produced an OperationEvent.
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionUpdated EventAction = "updated"
	ActionDeleted EventAction = "deleted"
)

// OperationEvent announces a committed change to an operation. Consumers
// re-read the operation by id; deleted events carry the last known user.
type OperationEvent struct {
	Action      EventAction
	OperationID int64
	UserID      int64
}
