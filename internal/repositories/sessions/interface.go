package sessions

import (
	"context"
	"time"
)

// Record is one journalled upload session.
type Record struct {
	AssetID  string
	Kind     string
	ParentID string
	FileName string
	FileSize int64
	Checksum string
	State    string
	// Transferred is set once every part reached its destination.
	Transferred bool
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Finished states are not returned by ListUnfinished. Discarded sessions
// are deleted rather than kept.
var finishedStates = []string{"committed"}

// Repository stores upload session records.
type Repository interface {
	// Save inserts rec or overwrites the mutable columns of an existing one.
	// CreatedAt of an existing record is kept.
	Save(ctx context.Context, rec Record) error

	// UpdateState records a transition of a known session;
	// common.ErrorNotFound if there is none.
	UpdateState(ctx context.Context, assetID, state string, transferred bool, errText string) error

	// Get returns the record; common.ErrorNotFound if there is none.
	Get(ctx context.Context, assetID string) (Record, error)

	// ListUnfinished returns sessions that never reached committed, oldest
	// first.
	ListUnfinished(ctx context.Context) ([]Record, error)

	// Delete removes the record; common.ErrorNotFound if there is none.
	Delete(ctx context.Context, assetID string) error
}
