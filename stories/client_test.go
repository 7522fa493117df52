package stories_test

import (
	"context"
	"encoding/json"
	"testing"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/stories"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers GETs from bodies and records POSTs and DELETEs. A POST is
// answered from replies, or with a save acknowledgement.
type fakeAPI struct {
	bodies  map[string]string
	replies map[string]string
	posted  map[string][]byte
	deleted []string
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{bodies: map[string]string{}, replies: map[string]string{}, posted: map[string][]byte{}}
}

func (f *fakeAPI) GetJSON(ctx context.Context, path string, out any) error {
	if f.err != nil {
		return f.err
	}
	body, ok := f.bodies[path]
	if !ok {
		body = `{"json":null}`
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeAPI) PostJSON(ctx context.Context, path string, in, out any) error {
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	f.posted[path] = b
	if out == nil {
		return nil
	}
	reply, ok := f.replies[path]
	if !ok {
		reply = `{"message":"saved"}`
	}
	return json.Unmarshal([]byte(reply), out)
}

func (f *fakeAPI) DeleteJSON(ctx context.Context, path string, out any) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, path)
	return nil
}

func TestParse(t *testing.T) {
	k, err := stories.ParseKind("timeline")
	require.NoError(t, err)
	require.Equal(t, stories.KindTimeline, k)

	_, err = stories.ParseKind("plot")
	require.ErrorIs(t, err, errs.ErrValidation)

	id, err := stories.ParseStoryID("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := stories.ParseStoryID(bad)
		require.ErrorIs(t, err, errs.ErrValidation, bad)
	}

	require.Equal(t, "/canvas/42", stories.Path(stories.KindCanvas, 42))
}

func TestClient_Characters(t *testing.T) {
	api := newFakeAPI()
	c := stories.NewClient(api)
	ctx := context.Background()

	chars, err := c.GetCharacters(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, chars)
	require.Empty(t, chars)

	saved := []stories.Character{{
		Name:       "Ada",
		Desc:       "engineer",
		Attributes: map[string]any{"age": float64(36)},
		Relations:  []stories.Relation{{Target: "Charles", Type: "friend"}},
	}}
	resp, err := c.SaveCharacters(ctx, 1, saved)
	require.NoError(t, err)
	require.Equal(t, "saved", resp.Message)
	require.JSONEq(t,
		`{"json":{"characters":[{"name":"Ada","desc":"engineer","attributes":{"age":36},"relations":[{"target":"Charles","type":"friend"}]}]}}`,
		string(api.posted["/character/1"]))

	api.bodies["/character/1"] = string(api.posted["/character/1"])
	chars, err = c.GetCharacters(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, saved, chars)
}

func TestClient_TimelineAndCanvas(t *testing.T) {
	api := newFakeAPI()
	api.bodies["/timeline/9"] = `{"json":{"events":[1]},"lastModified":"2026-01-02T03:04:05Z"}`
	c := stories.NewClient(api)
	ctx := context.Background()

	doc, err := c.GetTimeline(ctx, 9)
	require.NoError(t, err)
	require.False(t, doc.Empty())
	require.JSONEq(t, `{"events":[1]}`, string(doc.JSON))
	require.NotNil(t, doc.LastModified)
	require.Equal(t, 2026, doc.LastModified.Year())

	doc, err = c.GetCanvas(ctx, 9)
	require.NoError(t, err)
	require.True(t, doc.Empty())

	_, err = c.SaveCanvas(ctx, 9, json.RawMessage(`{"nodes":[]}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"json":{"nodes":[]}}`, string(api.posted["/canvas/9"]))

	_, err = c.SaveTimeline(ctx, 9, json.RawMessage(`{not json`))
	require.ErrorIs(t, err, errs.ErrValidation)
	require.NotContains(t, api.posted, "/timeline/9")
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	api := newFakeAPI()
	api.err = errs.ErrSessionExpired
	c := stories.NewClient(api)

	_, err := c.GetCharacters(context.Background(), 1)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	_, err = c.Save(context.Background(), stories.KindCanvas, 1, json.RawMessage(`{}`))
	require.ErrorIs(t, err, errs.ErrSessionExpired)
}

func TestClient_Catalogue(t *testing.T) {
	api := newFakeAPI()
	api.bodies[stories.StoriesPath] = `[{"id":3,"title":"Ahab","description":null,"isPublic":false,"createdAt":"2026-01-02T03:04:05Z"}]`
	api.bodies[stories.DeletedStoriesPath] = `[]`
	api.replies[stories.StoriesPath] = `{"id":4,"title":"Ishmael","description":null,"isPublic":true,"createdAt":"2026-01-02T03:04:05Z"}`
	c := stories.NewClient(api)
	ctx := context.Background()

	list, err := c.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Ahab", list[0].Title)
	require.Nil(t, list[0].Description)

	bin, err := c.ListDeletedStories(ctx)
	require.NoError(t, err)
	require.NotNil(t, bin)
	require.Empty(t, bin)

	story, err := c.CreateStory(ctx, stories.CreateStoryRequest{Title: "  Ishmael ", IsPublic: true})
	require.NoError(t, err)
	require.Equal(t, int64(4), story.ID)
	require.JSONEq(t, `{"title":"Ishmael","isPublic":true}`, string(api.posted[stories.StoriesPath]))

	_, err = c.CreateStory(ctx, stories.CreateStoryRequest{Title: " "})
	require.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, c.DeleteStory(ctx, 3))
	require.Equal(t, []string{"/story/3"}, api.deleted)

	require.NoError(t, c.RestoreStory(ctx, 3))
	require.Contains(t, api.posted, "/story/restore/3")
}
