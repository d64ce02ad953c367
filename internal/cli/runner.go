package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada-sync/internal/cache"
	"github.com/Makepad-fr/tada-sync/internal/config"
	"github.com/Makepad-fr/tada-sync/internal/credentials"
	"github.com/Makepad-fr/tada-sync/internal/logging"
	"github.com/Makepad-fr/tada-sync/internal/model"
	"github.com/Makepad-fr/tada-sync/internal/remote"
	"github.com/Makepad-fr/tada-sync/internal/syncer"
	"github.com/Makepad-fr/tada-sync/internal/tui"
	"github.com/Makepad-fr/tada-sync/internal/ui"
)

// Runner dispatches subcommands. Exit codes: 0 ok, 1 error, 2 usage.
type Runner struct {
	Cfg    *config.Config
	Creds  *credentials.Store
	Logger *log.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer

	// RunTUI starts the interactive view; swapped out in tests.
	RunTUI func(ctx context.Context, s *syncer.Syncer) error
}

// New returns a runner wired to the process's standard streams.
func New(cfg *config.Config, creds *credentials.Store, logger *log.Logger) *Runner {
	return &Runner{
		Cfg:    cfg,
		Creds:  creds,
		Logger: logger,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		RunTUI: tui.Run,
	}
}

// Run executes the subcommand named by args[0] and returns the exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		r.PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		r.PrintHelp()
		return 0

	case "ls":
		return r.doList(ctx, a)

	case "tui":
		return r.doTUI(ctx)

	case "add":
		if len(a) == 0 {
			ui.Fail(r.Err, "usage: todo add <title...>")
			return 2
		}
		return r.doAdd(ctx, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			ui.Fail(r.Err, "usage: todo done <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(r.Err, "done: not a number: "+a[0])
			return 2
		}
		return r.doToggle(ctx, n)

	case "rename":
		if len(a) < 2 {
			ui.Fail(r.Err, "usage: todo rename <index> <title...>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(r.Err, "rename: not a number: "+a[0])
			return 2
		}
		return r.doRename(ctx, n, strings.Join(a[1:], " "))

	case "rm":
		if len(a) != 1 {
			ui.Fail(r.Err, "usage: todo rm <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(r.Err, "rm: not a number: "+a[0])
			return 2
		}
		return r.doRemove(ctx, n)

	case "clear":
		return r.doClear()

	case "token":
		if len(a) == 0 {
			ui.Fail(r.Err, "usage: todo token <set|clear|status>")
			return 2
		}
		if r.Creds == nil {
			ui.Fail(r.Err, "token: no credentials directory available")
			return 1
		}
		switch a[0] {
		case "set":
			return r.doTokenSet(a[1:])
		case "clear":
			return r.doTokenClear()
		case "status":
			return r.doTokenStatus()
		}
		ui.Fail(r.Err, "usage: todo token <set|clear|status>")
		return 2
	}

	ui.Fail(r.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(r.Err)
	r.PrintHelp()
	return 2
}

// PrintHelp writes the usage text to Out.
func (r *Runner) PrintHelp() {
	fmt.Fprintf(r.Out, `todo - a to-do client for a remote todo API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls [--cached] [--group]     List items from the server (or the local snapshot)
  tui                         Interactive list
  add <title...>              Add a new item (title can be multiple words)
  done <index>                Toggle done for item at 1-based index
  rename <index> <title...>   Rename item at 1-based index
  rm <index>                  Remove item at 1-based index (local snapshot only)
  clear                       Remove every item (local snapshot only)
  token <set|clear|status>    Manage the API bearer token

Flags:
  --server URL   --config FILE   --timeout DUR   --cache-dir DIR
  --theme NAME   --log-level LVL --log-format FMT --group --no-color

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
  todo rename 2 "Buy oat milk"
`)
}

// newSyncer wires the client, cache and logger for one invocation.
func (r *Runner) newSyncer(logger *log.Logger) (*syncer.Syncer, error) {
	opts := []remote.Option{
		remote.WithTimeout(r.Cfg.Timeout),
		remote.WithLogger(logger),
	}
	if r.Creds != nil {
		opts = append(opts, remote.WithToken(r.Creds.Token))
	}
	client, err := remote.New(r.Cfg.Server, opts...)
	if err != nil {
		return nil, err
	}
	return syncer.New(client,
		syncer.WithCache(r.cache()),
		syncer.WithLogger(logger),
	), nil
}

func (r *Runner) cache() *cache.Cache {
	return cache.New(r.Cfg.CacheDir, r.Cfg.CacheKey)
}

// loaded returns a syncer populated from the server.
func (r *Runner) loaded(ctx context.Context) (*syncer.Syncer, int) {
	s, err := r.newSyncer(r.Logger)
	if err != nil {
		ui.Fail(r.Err, "client: "+err.Error())
		return nil, 2
	}
	if err := s.Load(ctx); err != nil {
		s.Close()
		ui.Fail(r.Err, err.Error())
		return nil, 1
	}
	return s, 0
}

// -------------- subcommand impls ----------------

func (r *Runner) doList(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	fs.SetOutput(r.Err)
	cached := fs.Bool("cached", false, "read the local snapshot instead of the server")
	group := fs.Bool("group", r.Cfg.Group, "group output by pending/done")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var items []model.Item
	source := r.Cfg.Server
	if *cached {
		var err error
		items, err = r.cache().Load()
		if err != nil {
			ui.Fail(r.Err, "cache: "+err.Error())
			return 1
		}
		source = "local snapshot"
	} else {
		s, code := r.loaded(ctx)
		if code != 0 {
			return code
		}
		defer s.Close()
		items = s.Items()
	}

	t := ui.Current()
	d, p := model.Stats(items)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), d,
		ui.C(t.Pending, t.SymPending), p,
		ui.C(t.Accent, "Total"), len(items),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")
	if *group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "source: "+source))
	ui.Panel(r.Out, lines)
	return 0
}

func (r *Runner) doTUI(ctx context.Context) int {
	logger, f, err := logging.OpenFile(r.Cfg.LogPath(), logging.Options{
		Level:  r.Cfg.LogLevel,
		Format: r.Cfg.LogFormat,
		Prefix: "tada",
	})
	if err != nil {
		ui.Fail(r.Err, "log: "+err.Error())
		return 1
	}
	defer f.Close()

	s, err := r.newSyncer(logger)
	if err != nil {
		ui.Fail(r.Err, "client: "+err.Error())
		return 2
	}
	defer s.Close()
	if err := r.RunTUI(ctx, s); err != nil {
		ui.Fail(r.Err, "tui: "+err.Error())
		return 1
	}
	return 0
}

func (r *Runner) doAdd(ctx context.Context, title string) int {
	if _, err := model.NormalizeTitle(title); err != nil {
		ui.Fail(r.Err, "add: empty title")
		return 2
	}
	s, err := r.newSyncer(r.Logger)
	if err != nil {
		ui.Fail(r.Err, "client: "+err.Error())
		return 2
	}
	defer s.Close()
	it, err := s.Add(ctx, title)
	if err != nil {
		ui.Fail(r.Err, "add: "+err.Error())
		return 1
	}
	ui.OK(r.Out, "added: "+it.Title)
	return 0
}

func (r *Runner) doToggle(ctx context.Context, userIndex int) int {
	if userIndex < 1 {
		return r.outOfRange(0, userIndex)
	}
	s, code := r.loaded(ctx)
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.at(s.Items(), userIndex)
	if !ok {
		return 2
	}
	it, err := s.Toggle(ctx, it.ID)
	if err != nil {
		ui.Fail(r.Err, err.Error())
		return 1
	}
	if it.Completed {
		ui.OK(r.Out, "done: "+it.Title)
	} else {
		ui.OK(r.Out, "pending: "+it.Title)
	}
	return 0
}

func (r *Runner) doRename(ctx context.Context, userIndex int, title string) int {
	if _, err := model.NormalizeTitle(title); err != nil {
		ui.Fail(r.Err, "rename: empty title")
		return 2
	}
	s, code := r.loaded(ctx)
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.at(s.Items(), userIndex)
	if !ok {
		return 2
	}
	it, err := s.Rename(ctx, it.ID, title)
	if err != nil {
		ui.Fail(r.Err, err.Error())
		return 1
	}
	ui.OK(r.Out, "renamed: "+it.Title)
	return 0
}

func (r *Runner) doRemove(ctx context.Context, userIndex int) int {
	s, code := r.loaded(ctx)
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.at(s.Items(), userIndex)
	if !ok {
		return 2
	}
	if err := s.Delete(it.ID); err != nil {
		ui.Fail(r.Err, err.Error())
		return 1
	}
	ui.OK(r.Out, "removed: "+it.Title)
	ui.Warn(r.Err, "the server copy is unchanged; only the local snapshot was updated")
	return 0
}

func (r *Runner) doClear() int {
	s, err := r.newSyncer(r.Logger)
	if err != nil {
		ui.Fail(r.Err, "client: "+err.Error())
		return 2
	}
	defer s.Close()
	if err := s.DeleteAll(); err != nil {
		ui.Fail(r.Err, err.Error())
		return 1
	}
	ui.OK(r.Out, "cleared local list and snapshot")
	ui.Warn(r.Err, "the server copy is unchanged")
	return 0
}

func (r *Runner) doTokenSet(args []string) int {
	token := strings.Join(args, " ")
	if strings.TrimSpace(token) == "" {
		fmt.Fprint(r.Out, "Paste your token: ")
		sc := bufio.NewScanner(r.In)
		if !sc.Scan() {
			ui.Fail(r.Err, "read token: no input")
			return 1
		}
		token = sc.Text()
	}
	if err := r.Creds.Set(token); err != nil {
		ui.Fail(r.Err, "save token: "+err.Error())
		return 1
	}
	ui.OK(r.Out, "token saved")
	return 0
}

func (r *Runner) doTokenClear() int {
	ti, _ := r.Creds.Get()
	if ti != nil && ti.Source == "env" {
		ui.OK(r.Out, "token is provided by "+credentials.EnvToken+" env var (nothing to delete)")
		return 0
	}
	if err := r.Creds.Delete(); err != nil {
		ui.Fail(r.Err, "clear token: "+err.Error())
		return 1
	}
	ui.OK(r.Out, "token cleared")
	return 0
}

func (r *Runner) doTokenStatus() int {
	ti, err := r.Creds.Get()
	if err != nil {
		ui.Fail(r.Err, err.Error())
		return 1
	}
	if ti == nil {
		fmt.Fprintln(r.Out, ui.Dim("no token; requests are sent without Authorization"))
		return 0
	}
	fmt.Fprintf(r.Out, "source: %s\n", ti.Source)
	fmt.Fprintf(r.Out, "env override: %s\n", credentials.EnvToken)
	return 0
}

// at resolves a 1-based index, reporting out-of-range to the user.
func (r *Runner) at(items []model.Item, userIndex int) (model.Item, bool) {
	if userIndex < 1 || userIndex > len(items) {
		r.outOfRange(len(items), userIndex)
		return model.Item{}, false
	}
	return items[userIndex-1], true
}

func (r *Runner) outOfRange(have, got int) int {
	ui.Fail(r.Err, fmt.Sprintf("index out of range: have %d, got %d", have, got))
	fmt.Fprintln(r.Err, ui.Dim("Hint: run `todo ls` to see valid indexes"))
	return 2
}

// -------------- rendering helpers --------------

func flatLines(items []model.Item) []string {
	t := ui.Current()
	if len(items) == 0 {
		return []string{ui.C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		idx := fmt.Sprintf("%2d.", i+1)
		box, color := t.BoxUnchecked, t.Muted
		if it.Completed {
			box, color = t.BoxChecked, t.Success
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			ui.Dim(idx), ui.C(color, box), ui.Truncate(it.Title, 80)))
	}
	return out
}

func groupLines(items []model.Item) []string {
	t := ui.Current()
	var pend, done []model.Item
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, ui.C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}

// ExitCode maps a config error to the usage exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	return 2
}
