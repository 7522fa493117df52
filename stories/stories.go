package stories

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "github.com/jrsteele09/storyforge/internal/errors"
)

// Kind is one of the per-story documents the API stores.
type Kind string

const (
	KindCharacter Kind = "character"
	KindTimeline  Kind = "timeline"
	KindCanvas    Kind = "canvas"
)

// Kinds lists every document kind in a fixed order.
var Kinds = []Kind{KindCharacter, KindTimeline, KindCanvas}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCharacter, KindTimeline, KindCanvas:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown document kind %q", errs.ErrValidation, s)
}

// ParseStoryID parses a positive numeric story ID.
func ParseStoryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid story id %q", errs.ErrValidation, s)
	}
	return id, nil
}

// Path is the API path of a document, relative to the API base URL.
func Path(kind Kind, storyID int64) string {
	return "/" + string(kind) + "/" + strconv.FormatInt(storyID, 10)
}

// Document is the wire shape of every story document. JSON is opaque to the
// API; it is null when nothing has been saved yet.
type Document struct {
	JSON         json.RawMessage `json:"json"`
	LastModified *time.Time      `json:"lastModified,omitempty"`
}

// Empty reports whether nothing has been saved for the document.
func (d *Document) Empty() bool {
	return len(d.JSON) == 0 || string(d.JSON) == "null"
}

type Relation struct {
	Target string `json:"target"`
	Type   string `json:"type"`
}

type Character struct {
	Name       string         `json:"name"`
	Desc       string         `json:"desc"`
	Attributes map[string]any `json:"attributes"`
	Relations  []Relation     `json:"relations"`
}

// CharacterSheet is the payload of a character document.
type CharacterSheet struct {
	Characters []Character `json:"characters"`
}

// SaveResponse is the API's acknowledgement of a save.
type SaveResponse struct {
	Message string `json:"message"`
}

// Story is an entry in the owner's story catalogue. DeletedAt is set while
// the story is in the bin.
type Story struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsPublic    bool       `json:"isPublic"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

type CreateStoryRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	IsPublic    bool    `json:"isPublic"`
}

// Validate trims the title and rejects an empty one.
func (r *CreateStoryRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if len(r.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title is longer than %d characters", errs.ErrValidation, MaxTitleLength)
	}
	return nil
}

const MaxTitleLength = 200

// StoryPath is the catalogue path of a story.
func StoryPath(storyID int64) string {
	return "/story/" + strconv.FormatInt(storyID, 10)
}

// RestorePath is the path that takes a story out of the bin.
func RestorePath(storyID int64) string {
	return "/story/restore/" + strconv.FormatInt(storyID, 10)
}

const (
	StoriesPath        = "/story"
	DeletedStoriesPath = "/story/deleted"
)
