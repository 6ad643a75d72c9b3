package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/cinedex/internal/catalog"
	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/mmcdole/cinedex/internal/tui/styles"
)

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	var body string
	if m.Screen == ScreenDetail {
		body = m.renderDetail()
	} else {
		body = m.renderList()
	}

	parts := []string{m.renderHeader(), m.renderTabs()}
	if bar := m.SearchBar.View(); bar != "" {
		parts = append(parts, " "+bar)
	}
	parts = append(parts, body, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := styles.AccentStyle.Bold(true).Render("cinedex")

	who := styles.DimStyle.Render("not logged in")
	if m.user != nil {
		who = styles.SubtitleStyle.Render(m.user.Name)
		if m.user.IsAdmin() {
			who += " " + styles.BadgeStyle.Render("admin")
		}
	}

	left := " " + title
	if m.Backdrop != "" {
		left += "  " + styles.DimStyle.Render(styles.Truncate(m.Backdrop, max(m.Width/2, 10)))
	}
	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(who)-1, 1)
	return left + strings.Repeat(" ", gap) + who
}

func (m Model) renderTabs() string {
	tabs := []Screen{ScreenTrending, ScreenPopular, ScreenFavorites}
	active := m.Screen
	if active == ScreenDetail {
		active = m.prevScreen
	}

	var rendered []string
	for i, s := range tabs {
		label := fmt.Sprintf("%d %s", i+1, s)
		if s == active {
			rendered = append(rendered, styles.BadgeStyle.Render(label))
		} else {
			rendered = append(rendered, styles.DimBadgeStyle.Render(label))
		}
	}

	var info []string
	if m.view.Searching {
		info = append(info, "search: "+m.view.Query)
	}
	if m.view.GenreID > 0 {
		info = append(info, "genre: "+m.genreName(m.view.GenreID))
	}
	if sort := m.view.Sort; sort.Field != catalog.SortNone {
		info = append(info, fmt.Sprintf("sort: %s %s", sort.Field, sort.Direction))
	}

	line := " " + strings.Join(rendered, " ")
	if len(info) > 0 {
		line += "  " + styles.SubtitleStyle.Render(strings.Join(info, " · "))
	}
	return line
}

func (m Model) renderList() string {
	rows := m.rows()
	h := m.listHeight()

	if len(rows) == 0 {
		msg := "Nothing here yet"
		switch {
		case m.Loading:
			msg = styles.SpinnerFrames[m.SpinnerFrame%len(styles.SpinnerFrames)] + " Loading..."
		case m.Screen == ScreenFavorites && m.user == nil:
			msg = "Log in to keep favorites"
		case m.Screen == ScreenFavorites:
			msg = "No favorites yet. Press f on a movie to add it."
		case m.view.Searching:
			msg = "No results"
		}
		return lipgloss.NewStyle().Height(h).Render(" " + styles.DimStyle.Render(msg))
	}

	end := min(m.offset+h, len(rows))
	lines := make([]string, 0, h)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.cursor))
	}
	return lipgloss.NewStyle().Height(h).Render(strings.Join(lines, "\n"))
}

func (m Model) renderRow(movie domain.Movie, selected bool) string {
	mark := styles.NotFavoriteChar
	var markColor *lipgloss.Color
	if m.isFavorite(movie.ID) {
		mark = styles.FavoriteChar
		c := styles.Red
		markColor = &c
	}

	year := "    "
	if y := movie.Year(); y > 0 {
		year = fmt.Sprintf("%d", y)
	}

	titleWidth := max(m.Width-20, 10)
	title := styles.Truncate(movie.Title, titleWidth)
	title += strings.Repeat(" ", max(titleWidth-lipgloss.Width(title), 0))

	dim := styles.DimGray
	return styles.RenderListRow([]styles.RowPart{
		{Text: mark + " ", Foreground: markColor},
		{Text: title + " "},
		{Text: year + " ", Foreground: &dim},
		{Text: fmt.Sprintf("★ %.1f", movie.VoteAverage)},
	}, selected, m.Width)
}

func (m Model) renderDetail() string {
	movie := m.view.Selected
	if movie == nil {
		spin := styles.SpinnerFrames[m.SpinnerFrame%len(styles.SpinnerFrames)]
		return styles.DetailStyle.Height(m.listHeight()).Render(spin + " Loading details...")
	}

	width := max(m.Width-4, 20)
	var b strings.Builder

	title := styles.TitleStyle.Render(movie.Title)
	if m.isFavorite(movie.ID) {
		title += " " + styles.FavoriteMark
	}
	b.WriteString(title + "\n")

	var meta []string
	if y := movie.Year(); y > 0 {
		meta = append(meta, fmt.Sprintf("%d", y))
	}
	if rt := movie.FormattedRuntime(); rt != "" {
		meta = append(meta, rt)
	}
	meta = append(meta, styles.RenderRating(movie.VoteAverage))
	b.WriteString(styles.SubtitleStyle.Render(strings.Join(meta, " · ")) + "\n")

	if len(movie.Genres) > 0 {
		names := make([]string, len(movie.Genres))
		for i, g := range movie.Genres {
			names[i] = g.Name
		}
		b.WriteString(styles.DimStyle.Render(strings.Join(names, ", ")) + "\n")
	}
	b.WriteString("\n")

	if movie.Overview != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(movie.Overview) + "\n\n")
	}

	if len(movie.Cast) > 0 {
		cast := make([]string, 0, 5)
		for _, c := range movie.Cast[:min(5, len(movie.Cast))] {
			cast = append(cast, c.Name)
		}
		b.WriteString(styles.AccentStyle.Render("Cast ") + strings.Join(cast, ", ") + "\n")
	}
	for _, c := range movie.Crew {
		if c.Job == "Director" {
			b.WriteString(styles.AccentStyle.Render("Director ") + c.Name + "\n")
			break
		}
	}
	if url := movie.TrailerURL(); url != "" {
		b.WriteString(styles.AccentStyle.Render("Trailer ") + styles.LinkStyle.Render(url) + "\n")
	}
	if url := movie.PosterURL(m.ImageBaseURL, domain.ImageSizeW500); url != "" {
		b.WriteString(styles.AccentStyle.Render("Poster ") + styles.DimStyle.Render(url) + "\n")
	}

	if len(m.view.Similar) > 0 {
		b.WriteString("\n" + styles.SubtitleStyle.Render("Similar") + "\n")
		for _, s := range m.view.Similar[:min(5, len(m.view.Similar))] {
			b.WriteString("  " + styles.Truncate(s.Title, width-10) + " " + styles.RenderRating(s.VoteAverage) + "\n")
		}
	}

	return styles.DetailStyle.Height(m.listHeight()).Render(b.String())
}

func (m Model) renderFooter() string {
	if m.StatusMsg != "" {
		style := styles.SuccessStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		return " " + style.Render(m.StatusMsg)
	}

	hints := []string{
		styles.HelpKeyStyle.Render("/") + styles.HelpDescStyle.Render(" search"),
		styles.HelpKeyStyle.Render("g") + styles.HelpDescStyle.Render(" genre"),
		styles.HelpKeyStyle.Render("f") + styles.HelpDescStyle.Render(" favorite"),
		styles.HelpKeyStyle.Render("?") + styles.HelpDescStyle.Render(" help"),
		styles.HelpKeyStyle.Render("q") + styles.HelpDescStyle.Render(" quit"),
	}
	footer := " " + strings.Join(hints, "  ")
	if m.Loading {
		footer += "  " + styles.AccentStyle.Render(styles.SpinnerFrames[m.SpinnerFrame%len(styles.SpinnerFrames)])
	}
	return footer
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys") + "\n\n")
	for _, binding := range Keys.HelpBindings() {
		h := binding.Help()
		fmt.Fprintf(&b, "  %s %s\n",
			styles.HelpKeyStyle.Render(fmt.Sprintf("%-12s", h.Key)),
			styles.HelpDescStyle.Render(h.Desc))
	}
	b.WriteString("\n" + styles.DimStyle.Render("Press any key to close"))
	return styles.BrowserStyle.Render(b.String())
}

func (m Model) isFavorite(movieID int) bool {
	for _, f := range m.favorites {
		if f.ID == movieID {
			return true
		}
	}
	return false
}

func (m Model) genreName(id int) string {
	for _, g := range m.genres {
		if g.ID == id {
			return g.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}
