// Command watchlist is a terminal client for the watchlist API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Clark-Hu/watchlist-tracker/internal/client"
)

const defaultAPIURL = "http://localhost:5000"

const usage = `usage: watchlist [-api url] [-timeout d] <command> [flags] [args]

commands:
  list       [-search s] [-status s] [-type t] [-sort k]   show the watchlist
  bookmarks                                               show bookmarked items
  show       <id>                                         show one item
  add        -title s [item flags]                        add an item
  edit       <id> [item flags]                            update the flags given
  bookmark   <id>                                         toggle the bookmark
  delete     <id>                                         remove an item
  import     -file path                                   add items from a JSON array
  export     [-file path]                                 write all items as a JSON array
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type app struct {
	client *client.Client
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	apiURL := os.Getenv("WATCHLIST_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	global := flag.NewFlagSet("watchlist", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	api := global.String("api", apiURL, "watchlist API base URL")
	timeout := global.Duration("timeout", 10*time.Second, "per-request timeout")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	c, err := client.New(*api, *timeout, log.New(stderr, "", 0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	a := &app{client: c, stdin: stdin, stdout: stdout, stderr: stderr}

	cmd, rest := global.Arg(0), global.Args()[1:]
	var runErr error
	switch cmd {
	case "list":
		runErr = a.list(ctx, rest)
	case "bookmarks":
		runErr = a.bookmarks(ctx, rest)
	case "show":
		runErr = a.show(ctx, rest)
	case "add":
		runErr = a.add(ctx, rest)
	case "edit":
		runErr = a.edit(ctx, rest)
	case "bookmark":
		runErr = a.bookmark(ctx, rest)
	case "delete":
		runErr = a.delete(ctx, rest)
	case "import":
		runErr = a.importItems(ctx, rest)
	case "export":
		runErr = a.exportItems(ctx, rest)
	case "help":
		global.Usage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		global.Usage()
		return 2
	}

	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) {
			return 0
		}
		var usageErr usageError
		if errors.As(runErr, &usageErr) {
			fmt.Fprintf(stderr, "%s: %v\n", cmd, usageErr)
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", describeError(runErr))
		return 1
	}
	return 0
}

// usageError marks bad command-line input, reported with exit status 2.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}
