package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zatekoja/provider-browser/internal/application/services"
	"github.com/zatekoja/provider-browser/internal/domain/entities"
	apperrors "github.com/zatekoja/provider-browser/pkg/errors"
)

// Theme is the terminal color scheme
type Theme struct {
	NormalText  lipgloss.Color
	FaintText   lipgloss.Color
	Accent      lipgloss.Color
	Favorite    lipgloss.Color
	Pending     lipgloss.Color
	ErrorText   lipgloss.Color
	BorderColor lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme
var DefaultTheme = Theme{
	NormalText:  lipgloss.Color("252"),
	FaintText:   lipgloss.Color("245"),
	Accent:      lipgloss.Color("75"),  // blue
	Favorite:    lipgloss.Color("220"), // amber
	Pending:     lipgloss.Color("141"), // light purple
	ErrorText:   lipgloss.Color("196"), // red
	BorderColor: lipgloss.Color("240"),
}

// Renderer turns session projections into terminal text. Color output is
// decided by the writer it was created for, so a bytes.Buffer gets plain text.
type Renderer struct {
	theme    Theme
	width    int
	renderer *lipgloss.Renderer
}

// NewRenderer creates a Renderer for out, wrapping cards at width columns
func NewRenderer(out io.Writer, theme Theme, width int) *Renderer {
	if width < 30 {
		width = 60
	}
	return &Renderer{theme: theme, width: width, renderer: lipgloss.NewRenderer(out)}
}

func (r *Renderer) style() lipgloss.Style {
	return r.renderer.NewStyle().Foreground(r.theme.NormalText)
}

func (r *Renderer) faint(s string) string {
	return r.renderer.NewStyle().Foreground(r.theme.FaintText).Render(s)
}

// Status renders the shared load status, or "" when a view has content to show
func (r *Renderer) Status(status services.ViewStatus) string {
	switch {
	case status.Status == services.ResultLoading:
		return r.faint("loading providers…")
	case status.Status == services.ResultError:
		return r.Error(status.Err) + "\n" + r.faint("type 'retry' to try again or 'dismiss' to hide this message")
	case status.Empty:
		return r.faint("no providers match these filters")
	case status.Status == services.ResultIdle:
		return r.faint("no search yet")
	}
	return ""
}

// Error renders err the way the user should read it
func (r *Renderer) Error(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeTimeout:
		msg = "the catalog took too long to respond"
	case apperrors.ErrorTypeNetwork:
		msg = "could not reach the catalog"
	case apperrors.ErrorTypeApplication, apperrors.ErrorTypeValidation, apperrors.ErrorTypeNotFound:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
	case apperrors.ErrorTypeAuthRequired:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Action != "" {
			msg = "sign in to " + appErr.Action
		} else {
			msg = "sign in required"
		}
	}
	return r.renderer.NewStyle().Foreground(r.theme.ErrorText).Bold(true).Render("! " + msg)
}

// Swipe renders the card under the cursor
func (r *Renderer) Swipe(view services.SwipeView) string {
	if s := r.Status(view.ViewStatus); s != "" && view.Current == nil {
		return s
	}
	if view.Current == nil {
		return r.faint("no providers match these filters")
	}

	card := r.renderCard(*view.Current)
	position := r.faint(fmt.Sprintf("%d / %d   ← skip  → next  ↑ details", view.State.Cursor+1, view.State.Length))
	box := r.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(r.theme.BorderColor).
		Padding(0, 1).
		Width(r.width).
		Render(card)

	out := lipgloss.JoinVertical(lipgloss.Left, box, position)
	if view.Status == services.ResultError {
		out += "\n" + r.Error(view.Err)
	}
	return out
}

// Grid renders the current page as a numbered list
func (r *Renderer) Grid(view services.GridView) string {
	if s := r.Status(view.ViewStatus); s != "" && len(view.Cards) == 0 {
		return s
	}

	lines := make([]string, 0, len(view.Cards)+2)
	offset := (view.Page.Page - 1) * view.Page.PageSize
	for i, card := range view.Cards {
		lines = append(lines, fmt.Sprintf("%3d. %s %s  %s  %s",
			offset+i+1,
			r.favoriteMark(card),
			r.style().Bold(true).Render(card.DisplayName),
			r.rating(card.Rating, card.ReviewCount),
			r.faint(strings.Join(card.Specializations, ", ")),
		))
	}
	lines = append(lines, r.faint(fmt.Sprintf("page %d / %d  (%d providers)",
		view.Page.Page, max(view.Page.TotalPages, 1), view.Page.TotalCount)))
	if view.Status == services.ResultError {
		lines = append(lines, r.Error(view.Err))
	}
	return strings.Join(lines, "\n")
}

// Map renders markers with their coordinates and the enclosing area
func (r *Renderer) Map(view services.MapView) string {
	if s := r.Status(view.ViewStatus); s != "" && len(view.Cards) == 0 {
		return s
	}

	lines := make([]string, 0, len(view.Markers)+3)
	if view.Bounds != nil {
		lines = append(lines, r.renderer.NewStyle().Foreground(r.theme.Accent).Render(
			fmt.Sprintf("area centred on %.4f, %.4f  radius %.1f km",
				view.Bounds.Center.Latitude, view.Bounds.Center.Longitude, view.Bounds.RadiusKm)))
	}
	for _, m := range view.Markers {
		mark := "•"
		if m.Favorited {
			mark = r.renderer.NewStyle().Foreground(r.theme.Favorite).Render("★")
		}
		lines = append(lines, fmt.Sprintf("  %s %s  %s", mark, m.Label,
			r.faint(fmt.Sprintf("(%.4f, %.4f)", m.Location.Latitude, m.Location.Longitude))))
	}
	if view.Unplaced > 0 {
		lines = append(lines, r.faint(fmt.Sprintf("%d provider(s) without a mapped location", view.Unplaced)))
	}
	if view.Status == services.ResultError {
		lines = append(lines, r.Error(view.Err))
	}
	return strings.Join(lines, "\n")
}

// Detail renders a full provider profile
func (r *Renderer) Detail(d *entities.ProviderDetail) string {
	var b strings.Builder
	b.WriteString(r.style().Bold(true).Render(d.DisplayName))
	if d.Title != "" {
		b.WriteString("  " + r.faint(d.Title))
	}
	b.WriteString("\n" + r.rating(d.Rating, d.ReviewCount) + "\n")
	if d.Bio != "" {
		b.WriteString("\n" + r.renderer.NewStyle().Width(r.width).Render(d.Bio) + "\n")
	}
	field := func(label string, values ...string) {
		values = compact(values)
		if len(values) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("\n%s %s", r.faint(label+":"), strings.Join(values, ", ")))
	}
	field("Specializations", d.Specializations...)
	field("Approaches", d.Approaches...)
	field("Languages", d.Languages...)
	field("Sessions", d.SessionTypes...)
	field("Availability", d.AvailabilityTags...)
	for _, loc := range d.Locations {
		field("Location", loc.Label, loc.City)
	}
	field("Phone", d.PhoneNumber)
	field("Email", d.Email)
	field("Web", d.Website)

	return r.renderer.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(r.theme.Accent).
		Padding(0, 1).
		Render(b.String())
}

func (r *Renderer) renderCard(card services.ProviderCard) string {
	var b strings.Builder
	b.WriteString(r.favoriteMark(card) + " " + r.style().Bold(true).Render(card.DisplayName))
	if card.Title != "" {
		b.WriteString("\n" + r.faint(card.Title))
	}
	b.WriteString("\n" + r.rating(card.Rating, card.ReviewCount))
	if len(card.Specializations) > 0 {
		b.WriteString("\n" + strings.Join(card.Specializations, " · "))
	}
	if len(card.Languages) > 0 {
		b.WriteString("\n" + r.faint("speaks "+strings.Join(card.Languages, ", ")))
	}
	for _, loc := range card.Locations {
		if place := strings.Join(compact([]string{loc.Label, loc.City}), ", "); place != "" {
			b.WriteString("\n" + r.faint(place))
		}
	}
	return b.String()
}

func (r *Renderer) favoriteMark(card services.ProviderCard) string {
	switch {
	case card.FavoritePending:
		return r.renderer.NewStyle().Foreground(r.theme.Pending).Render("…")
	case card.Favorited:
		return r.renderer.NewStyle().Foreground(r.theme.Favorite).Render("★")
	}
	return r.faint("☆")
}

func (r *Renderer) rating(rating float64, reviews int) string {
	if reviews == 0 && rating == 0 {
		return r.faint("no reviews yet")
	}
	return r.renderer.NewStyle().Foreground(r.theme.Favorite).Render(fmt.Sprintf("%.1f", rating)) +
		r.faint(fmt.Sprintf(" (%d reviews)", reviews))
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
