package storyrepofake

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/stories"
)

var _ stories.Repo = (*FakeStoryRepo)(nil)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type docKey struct {
	ownerID string
	kind    stories.Kind
	storyID int64
}

type storyRecord struct {
	ownerID string
	story   stories.Story
}

type FakeStoryRepo struct {
	docs    map[docKey]stories.Document
	stories map[int64]storyRecord
	lastID  int64
	lock    sync.RWMutex
}

func NewFakeStoryRepo() *FakeStoryRepo {
	return &FakeStoryRepo{
		docs:    make(map[docKey]stories.Document),
		stories: make(map[int64]storyRecord),
	}
}

func (r *FakeStoryRepo) Get(ownerID string, kind stories.Kind, storyID int64) (*stories.Document, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	doc, ok := r.docs[docKey{ownerID, kind, storyID}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &doc, nil
}

func (r *FakeStoryRepo) Put(ownerID string, kind stories.Kind, storyID int64, payload json.RawMessage) (*stories.Document, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	modified := NowTimeFunc().UTC()
	doc := stories.Document{
		JSON:         append(json.RawMessage(nil), payload...),
		LastModified: &modified,
	}
	r.docs[docKey{ownerID, kind, storyID}] = doc
	return &doc, nil
}

func (r *FakeStoryRepo) Create(ownerID string, req stories.CreateStoryRequest) (*stories.Story, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.lastID++
	story := stories.Story{
		ID:        r.lastID,
		Title:     req.Title,
		IsPublic:  req.IsPublic,
		CreatedAt: NowTimeFunc().UTC(),
	}
	if req.Description != nil {
		desc := *req.Description
		story.Description = &desc
	}
	r.stories[story.ID] = storyRecord{ownerID: ownerID, story: story}
	return &story, nil
}

func (r *FakeStoryRepo) List(ownerID string) ([]stories.Story, error) {
	return r.list(ownerID, false), nil
}

func (r *FakeStoryRepo) ListDeleted(ownerID string) ([]stories.Story, error) {
	return r.list(ownerID, true), nil
}

func (r *FakeStoryRepo) list(ownerID string, deleted bool) []stories.Story {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := []stories.Story{}
	for _, rec := range r.stories {
		if rec.ownerID == ownerID && (rec.story.DeletedAt != nil) == deleted {
			out = append(out, rec.story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *FakeStoryRepo) Delete(ownerID string, storyID int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.stories[storyID]
	if !ok || rec.ownerID != ownerID || rec.story.DeletedAt != nil {
		return errs.ErrNotFound
	}
	deleted := NowTimeFunc().UTC()
	rec.story.DeletedAt = &deleted
	r.stories[storyID] = rec
	return nil
}

func (r *FakeStoryRepo) Restore(ownerID string, storyID int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.stories[storyID]
	if !ok || rec.ownerID != ownerID || rec.story.DeletedAt == nil {
		return errs.ErrNotFound
	}
	rec.story.DeletedAt = nil
	r.stories[storyID] = rec
	return nil
}
