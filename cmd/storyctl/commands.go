package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/storyforge/backend"
	"github.com/jrsteele09/storyforge/internal/config"
	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/session"
	"github.com/jrsteele09/storyforge/stories"
	"golang.org/x/sync/errgroup"
)

type command struct {
	usage string
	args  int
	// clock runs the session clock for the command's lifetime.
	clock bool
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":  {usage: "login <email> <password>", args: 2, run: loginCommand},
	"logout": {usage: "logout", run: logoutCommand},
	"status": {usage: "status", run: statusCommand},
	"get":    {usage: "get <kind> <storyId>", args: 2, clock: true, run: getCommand},
	"put":    {usage: "put <kind> <storyId> <file|->", args: 3, clock: true, run: putCommand},
	"sync":   {usage: "sync <storyId>", args: 1, clock: true, run: syncCommand},

	"stories": {usage: "stories", clock: true, run: storiesCommand},
	"bin":     {usage: "bin", clock: true, run: binCommand},
	"create":  {usage: "create <title>", args: 1, clock: true, run: createCommand},
	"delete":  {usage: "delete <storyId>", args: 1, clock: true, run: deleteCommand},
	"restore": {usage: "restore <storyId>", args: 1, clock: true, run: restoreCommand},
}

func run(ctx context.Context, c config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command\n%s", usage())
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", args[0], usage())
	}
	if len(args)-1 != cmd.args {
		return fmt.Errorf("usage: storyctl %s", cmd.usage)
	}

	a, err := newApp(c, out)
	if err != nil {
		return err
	}
	if _, err := a.controller.Restore(); err != nil {
		return err
	}
	if cmd.clock {
		stop := a.startClock(ctx)
		defer stop()
	}
	return cmd.run(ctx, a, args[1:])
}

func usage() string {
	lines := make([]string, 0, len(commands))
	for _, cmd := range commands {
		lines = append(lines, "  storyctl "+cmd.usage)
	}
	sort.Strings(lines)
	return "commands:\n" + strings.Join(lines, "\n")
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	if a.controller.State() != session.Anonymous {
		return fmt.Errorf("%w: run storyctl logout first", errs.ErrAlreadyLoggedIn)
	}
	cred, err := a.controller.Login(ctx, backend.LoginRequest{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in, access token expires in %ds\n", cred.SecondsUntilExpiry(time.Now()))
	return nil
}

func logoutCommand(_ context.Context, a *app, _ []string) error {
	if err := a.controller.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func statusCommand(_ context.Context, a *app, _ []string) error {
	seconds, ok := a.controller.SecondsUntilExpiry()
	if !ok {
		fmt.Fprintf(a.out, "%s\n", a.controller.State())
		return nil
	}
	fmt.Fprintf(a.out, "%s, access token expires in %ds\n", a.controller.State(), seconds)
	return nil
}

func getCommand(ctx context.Context, a *app, args []string) error {
	kind, storyID, err := parseDocumentArgs(args[0], args[1])
	if err != nil {
		return err
	}
	doc, err := a.stories.Get(ctx, kind, storyID)
	if err != nil {
		return err
	}
	return printDocument(a.out, doc)
}

func putCommand(ctx context.Context, a *app, args []string) error {
	kind, storyID, err := parseDocumentArgs(args[0], args[1])
	if err != nil {
		return err
	}
	payload, err := readPayload(args[2])
	if err != nil {
		return err
	}
	resp, err := a.stories.Save(ctx, kind, storyID, payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// syncCommand fetches every document of a story at once. The fetches share
// one renewal if the access token has expired.
func syncCommand(ctx context.Context, a *app, args []string) error {
	storyID, err := stories.ParseStoryID(args[0])
	if err != nil {
		return err
	}

	docs := make([]*stories.Document, len(stories.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range stories.Kinds {
		g.Go(func() error {
			doc, err := a.stories.Get(gctx, kind, storyID)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, kind := range stories.Kinds {
		fmt.Fprintf(a.out, "%s:\n", kind)
		if err := printDocument(a.out, docs[i]); err != nil {
			return err
		}
	}
	return nil
}

func storiesCommand(ctx context.Context, a *app, _ []string) error {
	list, err := a.stories.ListStories(ctx)
	if err != nil {
		return err
	}
	return printStories(a.out, list)
}

// binCommand lists deleted stories that can still be restored.
func binCommand(ctx context.Context, a *app, _ []string) error {
	list, err := a.stories.ListDeletedStories(ctx)
	if err != nil {
		return err
	}
	return printStories(a.out, list)
}

func createCommand(ctx context.Context, a *app, args []string) error {
	story, err := a.stories.CreateStory(ctx, stories.CreateStoryRequest{Title: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created story %d\n", story.ID)
	return nil
}

func deleteCommand(ctx context.Context, a *app, args []string) error {
	storyID, err := stories.ParseStoryID(args[0])
	if err != nil {
		return err
	}
	if err := a.stories.DeleteStory(ctx, storyID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}

func restoreCommand(ctx context.Context, a *app, args []string) error {
	storyID, err := stories.ParseStoryID(args[0])
	if err != nil {
		return err
	}
	if err := a.stories.RestoreStory(ctx, storyID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "restored")
	return nil
}

func printStories(out io.Writer, list []stories.Story) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "no stories")
		return err
	}
	for _, story := range list {
		if _, err := fmt.Fprintf(out, "%d\t%s\n", story.ID, story.Title); err != nil {
			return err
		}
	}
	return nil
}

func parseDocumentArgs(kindArg, storyArg string) (stories.Kind, int64, error) {
	kind, err := stories.ParseKind(kindArg)
	if err != nil {
		return "", 0, err
	}
	storyID, err := stories.ParseStoryID(storyArg)
	if err != nil {
		return "", 0, err
	}
	return kind, storyID, nil
}

// readPayload reads a document from path, or from stdin when path is "-".
func readPayload(path string) (json.RawMessage, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return bytes.TrimSpace(b), nil
}

func printDocument(out io.Writer, doc *stories.Document) error {
	if doc.Empty() {
		_, err := fmt.Fprintln(out, "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc.JSON, "", "  "); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrServer, err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
