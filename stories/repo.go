package stories

import "encoding/json"

// Repo stores documents and the story catalogue per owner. Get returns
// errs.ErrNotFound for a document that was never saved.
type Repo interface {
	Get(ownerID string, kind Kind, storyID int64) (*Document, error)
	Put(ownerID string, kind Kind, storyID int64, payload json.RawMessage) (*Document, error)

	Create(ownerID string, req CreateStoryRequest) (*Story, error)
	// List returns the owner's live stories, ListDeleted the ones in the
	// bin. Both are ordered by ID.
	List(ownerID string) ([]Story, error)
	ListDeleted(ownerID string) ([]Story, error)
	// Delete moves a live story to the bin and Restore takes it back out.
	// Either returns errs.ErrNotFound when the story is not in the
	// expected state for that owner.
	Delete(ownerID string, storyID int64) error
	Restore(ownerID string, storyID int64) error
}
