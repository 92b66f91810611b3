package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
	"github.com/Clark-Hu/watchlist-tracker/internal/listview"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags accepts the positional id either before or after the flags.
func parseFlags(fs *flag.FlagSet, args []string) (string, error) {
	var id string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", err
		}
		return "", usageError{err}
	}
	if id == "" {
		id = fs.Arg(0)
	}
	return id, nil
}

func requireID(fs *flag.FlagSet, args []string) (string, error) {
	id, err := parseFlags(fs, args)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", usagef("missing item id")
	}
	return id, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flagSet("list")
	search := fs.String("search", "", "match title, genre or notes")
	status := fs.String("status", listview.FilterAll, "status filter")
	itemType := fs.String("type", listview.FilterAll, "type filter")
	sortKey := fs.String("sort", string(listview.SortNewest), "sort order: "+sortUsage())
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	q := listview.Query{Search: *search}
	var err error
	if q.Status, err = listview.ParseStatusFilter(*status); err != nil {
		return usageError{err}
	}
	if q.Type, err = listview.ParseTypeFilter(*itemType); err != nil {
		return usageError{err}
	}
	if q.Sort, err = listview.ParseSort(*sortKey); err != nil {
		return usageError{err}
	}

	items, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	list := listview.NewList(items)
	view := listview.NewView(list, q)
	shown := view.Items()
	if len(shown) == 0 {
		if list.Len() == 0 {
			fmt.Fprintln(a.stdout, "Your watchlist is empty.")
		} else {
			fmt.Fprintln(a.stdout, "No items match your filters.")
		}
		return nil
	}
	if err := printTable(a.stdout, shown); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s, sorted by %s\n", view.Stats(), q.Sort.Label())
	if !q.IsDefault() {
		fmt.Fprintln(a.stdout, "Run \"watchlist list\" without flags to clear filters.")
	}
	return nil
}

func sortUsage() string {
	parts := make([]string, len(listview.SortKeys))
	for i, k := range listview.SortKeys {
		parts[i] = fmt.Sprintf("%s (%s)", k, k.Label())
	}
	return strings.Join(parts, ", ")
}

func (a *app) bookmarks(ctx context.Context, args []string) error {
	if _, err := parseFlags(a.flagSet("bookmarks"), args); err != nil {
		return err
	}
	items, err := a.client.ListBookmarked(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.stdout, "No bookmarked items.")
		return nil
	}
	return printTable(a.stdout, items)
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := requireID(a.flagSet("show"), args)
	if err != nil {
		return err
	}
	item, err := a.client.Get(ctx, id)
	if err != nil {
		return err
	}
	return printDetail(a.stdout, item)
}

// itemFlags registers the editable item fields on fs.
type itemFlags struct {
	fs       *flag.FlagSet
	title    string
	itemType string
	genre    string
	status   string
	rating   float64
	notes    string
	imageURL string
	year     int
	bookmark bool
}

func newItemFlags(fs *flag.FlagSet) *itemFlags {
	f := &itemFlags{fs: fs}
	fs.StringVar(&f.title, "title", "", "title")
	fs.StringVar(&f.itemType, "type", "", "movie, tv, anime or other")
	fs.StringVar(&f.genre, "genre", "", "genre")
	fs.StringVar(&f.status, "status", "", "plan_to_watch, watching, completed, on_hold or dropped")
	fs.Float64Var(&f.rating, "rating", 0, "rating from 0 to 10")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.StringVar(&f.imageURL, "image", "", "poster image URL")
	fs.IntVar(&f.year, "year", 0, "release year (0 clears it on edit)")
	fs.BoolVar(&f.bookmark, "bookmark", false, "bookmark the item")
	return f
}

func (f *itemFlags) set() map[string]bool {
	seen := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { seen[fl.Name] = true })
	return seen
}

func (f *itemFlags) input() domain.ItemInput {
	seen := f.set()
	in := domain.ItemInput{
		Title:      f.title,
		Genre:      f.genre,
		Notes:      f.notes,
		ImageURL:   f.imageURL,
		Bookmarked: f.bookmark,
	}
	if seen["type"] {
		t := domain.ItemType(f.itemType)
		in.Type = &t
	}
	if seen["status"] {
		s := domain.Status(f.status)
		in.Status = &s
	}
	if seen["rating"] {
		r := f.rating
		in.Rating = &r
	}
	if seen["year"] {
		y := f.year
		in.ReleaseYear = &y
	}
	return in
}

func (f *itemFlags) patch() domain.ItemPatch {
	seen := f.set()
	var p domain.ItemPatch
	if seen["title"] {
		p.Title = &f.title
	}
	if seen["type"] {
		t := domain.ItemType(f.itemType)
		p.Type = &t
	}
	if seen["genre"] {
		p.Genre = &f.genre
	}
	if seen["status"] {
		s := domain.Status(f.status)
		p.Status = &s
	}
	if seen["rating"] {
		p.Rating = &f.rating
	}
	if seen["notes"] {
		p.Notes = &f.notes
	}
	if seen["image"] {
		p.ImageURL = &f.imageURL
	}
	if seen["year"] {
		p.ReleaseYear = &f.year
	}
	if seen["bookmark"] {
		p.Bookmarked = &f.bookmark
	}
	return p
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	flags := newItemFlags(fs)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(flags.title) == "" {
		return usagef("-title is required")
	}
	item, err := a.client.Create(ctx, flags.input())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %q (%s)\n", item.Title, item.ID)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flagSet("edit")
	flags := newItemFlags(fs)
	id, err := requireID(fs, args)
	if err != nil {
		return err
	}
	patch := flags.patch()
	if patch.IsEmpty() {
		return usagef("nothing to update: pass at least one item flag")
	}
	item, err := a.client.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated %q\n", item.Title)
	return printDetail(a.stdout, item)
}

func (a *app) bookmark(ctx context.Context, args []string) error {
	id, err := requireID(a.flagSet("bookmark"), args)
	if err != nil {
		return err
	}
	item, err := a.client.ToggleBookmark(ctx, id)
	if err != nil {
		return err
	}
	if item.Bookmarked {
		fmt.Fprintf(a.stdout, "Bookmarked %q\n", item.Title)
	} else {
		fmt.Fprintf(a.stdout, "Removed bookmark from %q\n", item.Title)
	}
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, err := requireID(a.flagSet("delete"), args)
	if err != nil {
		return err
	}
	if err := a.client.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s\n", id)
	return nil
}

// importItems creates one item per element of a JSON array. The array is
// read newest first, the layout export writes, so items are created from the
// last element back and a round trip keeps the list order. Exported ids and
// createdAt values are ignored.
func (a *app) importItems(ctx context.Context, args []string) error {
	fs := a.flagSet("import")
	file := fs.String("file", "", `JSON file to read ("-" for stdin)`)
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return usagef("-file is required")
	}

	var payload []byte
	var err error
	if *file == "-" {
		payload, err = io.ReadAll(a.stdin)
	} else {
		payload, err = os.ReadFile(*file)
	}
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var inputs []domain.ItemInput
	if err := json.Unmarshal(payload, &inputs); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	var failed int
	for i := len(inputs) - 1; i >= 0; i-- {
		in := inputs[i]
		if _, err := a.client.Create(ctx, in); err != nil {
			failed++
			fmt.Fprintf(a.stderr, "item %d (%q): %v\n", i, in.Title, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	fmt.Fprintf(a.stdout, "Imported %d of %d items\n", len(inputs)-failed, len(inputs))
	if failed > 0 {
		return fmt.Errorf("%d item(s) failed to import", failed)
	}
	return nil
}

func (a *app) exportItems(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	file := fs.String("file", "", "write to this file instead of stdout")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	items, err := a.client.List(ctx)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	payload = append(payload, '\n')

	if *file == "" {
		_, err = a.stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(*file, payload, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(a.stdout, "Exported %d items to %s\n", len(items), *file)
	return nil
}
