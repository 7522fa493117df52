package stories

import (
	"context"
	"encoding/json"
	"fmt"

	errs "github.com/jrsteele09/storyforge/internal/errors"
)

// API is the authenticated JSON transport. *gateway.Gateway satisfies it.
type API interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	DeleteJSON(ctx context.Context, path string, out any) error
}

// Client manages the story catalogue and reads and writes story documents
// through an authenticated API.
type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

func (c *Client) Get(ctx context.Context, kind Kind, storyID int64) (*Document, error) {
	var doc Document
	if err := c.api.GetJSON(ctx, Path(kind, storyID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save stores payload as the document, wrapped as {"json": payload}.
func (c *Client) Save(ctx context.Context, kind Kind, storyID int64, payload json.RawMessage) (*SaveResponse, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: %s payload is not valid JSON", errs.ErrValidation, kind)
	}
	var resp SaveResponse
	if err := c.api.PostJSON(ctx, Path(kind, storyID), Document{JSON: payload}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCharacters returns the story's characters, empty when none are saved.
func (c *Client) GetCharacters(ctx context.Context, storyID int64) ([]Character, error) {
	doc, err := c.Get(ctx, KindCharacter, storyID)
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		return []Character{}, nil
	}
	var sheet CharacterSheet
	if err := json.Unmarshal(doc.JSON, &sheet); err != nil {
		return nil, fmt.Errorf("[Client GetCharacters] %w: %w", errs.ErrServer, err)
	}
	if sheet.Characters == nil {
		sheet.Characters = []Character{}
	}
	return sheet.Characters, nil
}

func (c *Client) SaveCharacters(ctx context.Context, storyID int64, characters []Character) (*SaveResponse, error) {
	payload, err := json.Marshal(CharacterSheet{Characters: characters})
	if err != nil {
		return nil, fmt.Errorf("[Client SaveCharacters] encode: %w", err)
	}
	return c.Save(ctx, KindCharacter, storyID, payload)
}

func (c *Client) GetTimeline(ctx context.Context, storyID int64) (*Document, error) {
	return c.Get(ctx, KindTimeline, storyID)
}

func (c *Client) SaveTimeline(ctx context.Context, storyID int64, timeline json.RawMessage) (*SaveResponse, error) {
	return c.Save(ctx, KindTimeline, storyID, timeline)
}

func (c *Client) GetCanvas(ctx context.Context, storyID int64) (*Document, error) {
	return c.Get(ctx, KindCanvas, storyID)
}

func (c *Client) SaveCanvas(ctx context.Context, storyID int64, canvas json.RawMessage) (*SaveResponse, error) {
	return c.Save(ctx, KindCanvas, storyID, canvas)
}

func (c *Client) ListStories(ctx context.Context) ([]Story, error) {
	return c.listStories(ctx, StoriesPath)
}

// ListDeletedStories returns the stories in the bin.
func (c *Client) ListDeletedStories(ctx context.Context) ([]Story, error) {
	return c.listStories(ctx, DeletedStoriesPath)
}

func (c *Client) listStories(ctx context.Context, path string) ([]Story, error) {
	var out []Story
	if err := c.api.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Story{}
	}
	return out, nil
}

func (c *Client) CreateStory(ctx context.Context, req CreateStoryRequest) (*Story, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var story Story
	if err := c.api.PostJSON(ctx, StoriesPath, req, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// DeleteStory moves a story to the bin.
func (c *Client) DeleteStory(ctx context.Context, storyID int64) error {
	return c.api.DeleteJSON(ctx, StoryPath(storyID), nil)
}

func (c *Client) RestoreStory(ctx context.Context, storyID int64) error {
	return c.api.PostJSON(ctx, RestorePath(storyID), nil, nil)
}
