package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/Clark-Hu/watchlist-tracker/internal/client"
	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

func printTable(w io.Writer, items []domain.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tSTATUS\tRATING\tYEAR\t★\tADDED")
	for _, item := range items {
		mark := ""
		if item.Bookmarked {
			mark = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ID,
			item.Title,
			item.Type,
			item.Status.Label(),
			formatRating(item.Rating),
			formatYear(item.ReleaseYear),
			mark,
			item.CreatedAt.Local().Format(time.DateOnly),
		)
	}
	return tw.Flush()
}

func printDetail(w io.Writer, item domain.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", item.ID},
		{"Title", item.Title},
		{"Type", string(item.Type)},
		{"Genre", item.Genre},
		{"Status", item.Status.Label()},
		{"Rating", formatRating(item.Rating) + "/10"},
		{"Release year", formatYear(item.ReleaseYear)},
		{"Bookmarked", strconv.FormatBool(item.Bookmarked)},
		{"Image", item.ImageURL},
		{"Notes", item.Notes},
		{"Added", item.CreatedAt.Local().Format(time.RFC1123)},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func formatYear(year *int) string {
	if year == nil {
		return "-"
	}
	return strconv.Itoa(*year)
}

// describeError expands validation failures into one line per field.
func describeError(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err.Error()
	}
	msg := apiErr.Message
	for _, field := range sortedKeys(apiErr.Fields) {
		msg += fmt.Sprintf("\n  %s: %s", field, apiErr.Fields[field])
	}
	return msg
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
