package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/provider-browser/internal/application/services"
	"github.com/zatekoja/provider-browser/internal/domain/entities"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

const helpText = `commands:
  filter key=value ...   set filters (q, spec, lang, rating, avail, loc, fav); "filter clear" resets
  mode swipe|grid|map    switch the view
  left | right | up      swipe the current card (arrow keys; mirrored for rtl)
  next | prev            turn the grid page
  fav [id|row]           toggle a favorite (current card when omitted)
  retry | dismiss        recover from a failed search
  show                   print the current view
  quit`

// REPL is the line-oriented front end of a browse session
type REPL struct {
	session  *services.BrowseSession
	renderer *Renderer
	in       io.Reader
	out      io.Writer
	mu       *sync.Mutex

	// settleWait bounds how long a swipe command waits for its animation
	settleWait time.Duration
}

// NewREPL creates a REPL. mu serializes writes to out with other writers such
// as the detail presenter.
func NewREPL(session *services.BrowseSession, renderer *Renderer, in io.Reader, out io.Writer, mu *sync.Mutex, settleWait time.Duration) *REPL {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if settleWait <= 0 {
		settleWait = time.Second
	}
	return &REPL{
		session:    session,
		renderer:   renderer,
		in:         in,
		out:        out,
		mu:         mu,
		settleWait: settleWait,
	}
}

// Run reads commands until quit, end of input or ctx is done
func (r *REPL) Run(ctx context.Context) error {
	r.show()
	scanner := bufio.NewScanner(r.in)
	for {
		r.print("> ")
		if !scanner.Scan() {
			r.print("\n")
			return scanner.Err()
		}
		quit, err := r.Execute(ctx, scanner.Text())
		if err != nil {
			r.println(r.renderer.Error(err))
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit
func (r *REPL) Execute(ctx context.Context, line string) (bool, error) {
	args, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		r.println(helpText)
	case "show":
		r.show()
	case "filter", "f":
		return false, r.filter(ctx, args)
	case "mode", "m":
		return false, r.mode(ctx, args)
	case "left", "right", "up":
		r.swipe(ctx, cmd)
	case "next", "n":
		return false, r.turnPage(ctx, r.session.NextPage)
	case "prev", "p":
		return false, r.turnPage(ctx, r.session.PrevPage)
	case "fav":
		return false, r.favorite(ctx, args)
	case "retry":
		h, err := r.session.Retry(ctx)
		if err != nil {
			return false, err
		}
		r.await(ctx, h)
		r.show()
	case "dismiss":
		r.session.DismissError()
		r.show()
	default:
		return false, apperrors.NewValidationError(fmt.Sprintf("unknown command %q, type 'help'", cmd))
	}
	return false, nil
}

func (r *REPL) filter(ctx context.Context, args []string) error {
	filters, err := parseFilters(args, r.session.Filters())
	if err != nil {
		return err
	}
	h, err := r.session.ApplyFilters(ctx, filters)
	if err != nil {
		return err
	}
	r.await(ctx, h)
	r.show()
	return nil
}

func (r *REPL) mode(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.NewValidationError("usage: mode swipe|grid|map")
	}
	mode, ok := entities.ParseViewMode(args[0])
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown view mode %q", args[0]))
	}
	h, err := r.session.SwitchMode(ctx, mode)
	if err != nil {
		return err
	}
	r.await(ctx, h)
	r.show()
	return nil
}

func (r *REPL) swipe(ctx context.Context, cmd string) {
	key := map[string]entities.Key{
		"left":  entities.KeyLeft,
		"right": entities.KeyRight,
		"up":    entities.KeyUp,
	}[cmd]

	settled := make(chan struct{}, 1)
	unsubscribe := r.session.SwipeSession().Subscribe(func(_ entities.SwipeState, e *services.SwipeEvent) {
		if e != nil {
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if !r.session.PressKey(ctx, key) {
		if r.session.Mode() != entities.ViewModeSwipe {
			r.println(r.renderer.faint("swiping only works in swipe mode"))
		}
		return
	}

	select {
	case <-settled:
	case <-time.After(r.settleWait):
	case <-ctx.Done():
		return
	}
	if key != entities.KeyUp {
		r.show()
	}
}

func (r *REPL) turnPage(ctx context.Context, turn func(context.Context) (*services.RequestHandle, bool, error)) error {
	if r.session.Mode() != entities.ViewModeGrid {
		return apperrors.NewValidationError("paging only works in grid mode")
	}
	h, moved, err := turn(ctx)
	if err != nil {
		return err
	}
	if !moved {
		r.println(r.renderer.faint("no more pages that way"))
		return nil
	}
	r.await(ctx, h)
	r.show()
	return nil
}

func (r *REPL) favorite(ctx context.Context, args []string) error {
	var (
		action entities.ToggleAction
		err    error
	)
	switch {
	case len(args) == 0 && r.session.Mode() == entities.ViewModeSwipe:
		action, err = r.session.ToggleCurrentFavorite(ctx)
	case len(args) == 1:
		action, err = r.session.ToggleFavorite(ctx, r.resolveProvider(args[0]))
	default:
		return apperrors.NewValidationError("usage: fav [provider-id|row]")
	}
	if err != nil {
		// Rolled back already; the view shows the restored state.
		r.show()
		return err
	}
	r.println(r.renderer.faint("favorite " + string(action)))
	r.show()
	return nil
}

// resolveProvider maps a grid row number onto its provider id. Anything else
// is taken as an id.
func (r *REPL) resolveProvider(arg string) string {
	row, err := strconv.Atoi(arg)
	if err != nil || r.session.Mode() != entities.ViewModeGrid {
		return arg
	}
	view := r.session.GridView()
	idx := row - 1 - (view.Page.Page-1)*view.Page.PageSize
	if idx < 0 || idx >= len(view.Cards) {
		return arg
	}
	return view.Cards[idx].ID
}

func (r *REPL) await(ctx context.Context, h *services.RequestHandle) {
	if h == nil {
		return
	}
	// Failures surface through the view status.
	_, _ = h.Wait(ctx)
}

func (r *REPL) show() {
	var view string
	switch r.session.Mode() {
	case entities.ViewModeGrid:
		view = r.renderer.Grid(r.session.GridView())
	case entities.ViewModeMap:
		view = r.renderer.Map(r.session.MapView())
	default:
		view = r.renderer.Swipe(r.session.SwipeView())
	}
	r.println(view)
}

func (r *REPL) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, s)
}

func (r *REPL) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s)
}

// parseFilters applies key=value arguments on top of current
func parseFilters(args []string, current entities.FilterSet) (entities.FilterSet, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "clear") {
		return entities.FilterSet{}, nil
	}

	f := current
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return current, apperrors.NewValidationError(fmt.Sprintf("expected key=value, got %q", arg))
		}
		switch strings.ToLower(key) {
		case "q", "query":
			f.FreeTextQuery = value
		case "spec", "specialization", "specializations":
			f.Specializations = splitList(value)
		case "lang", "language", "languages":
			f.Languages = splitList(value)
		case "avail", "availability":
			f.AvailabilityTags = splitList(value)
		case "loc", "location":
			f.LocationQuery = value
		case "rating", "min_rating":
			if value == "" {
				f.MinRating = 0
				continue
			}
			rating, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return current, apperrors.NewValidationError(fmt.Sprintf("rating must be a number, got %q", value))
			}
			f.MinRating = rating
		case "fav", "favorites", "only_favorited":
			if value == "" {
				f.OnlyFavorited = false
				continue
			}
			only, err := strconv.ParseBool(value)
			if err != nil {
				return current, apperrors.NewValidationError(fmt.Sprintf("fav must be true or false, got %q", value))
			}
			f.OnlyFavorited = only
		default:
			return current, apperrors.NewValidationError(fmt.Sprintf("unknown filter %q", key))
		}
	}
	return f, f.Validate()
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// splitArgs splits a command line on whitespace, keeping double-quoted runs
// together: q="panic attacks" is one argument.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, apperrors.NewValidationError("unterminated quote")
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}
