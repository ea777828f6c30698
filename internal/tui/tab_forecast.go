package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"
	"github.com/theirongolddev/ledgercast/internal/tui/components"
	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type viewMode int

const (
	viewAccount viewMode = iota
	viewCostCenter
	viewTotal
)

var viewNames = []string{"G/L Account", "Cost Centre", "Total"}

// datasetState is the per-tab view state.
type datasetState struct {
	outcome     *pipeline.Outcome
	view        viewMode
	cursor      int
	offset      int
	searching   bool
	searchInput textinput.Model
	searchQuery string
	tableScroll int
}

func newDatasetState() datasetState {
	return datasetState{searchInput: newSearchInput()}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "filter..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30
	return ti
}

func (s datasetState) result() *model.Result {
	if s.outcome == nil {
		return nil
	}
	return s.outcome.Result
}

// names returns the pick list for the current view, narrowed by the
// search query. The total view has no pick list.
func (s datasetState) names() []string {
	res := s.result()
	if res == nil {
		return nil
	}
	var all []string
	switch s.view {
	case viewAccount:
		all = pipeline.Accounts(res.Forecasts)
	case viewCostCenter:
		all = pipeline.CostCenters(res.Forecasts)
	default:
		return nil
	}
	return pipeline.MatchNames(all, s.searchQuery)
}

func (s datasetState) selected() (string, bool) {
	names := s.names()
	if s.cursor < 0 || s.cursor >= len(names) {
		return "", false
	}
	return names[s.cursor], true
}

func (s *datasetState) clamp() {
	n := len(s.names())
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.tableScroll < 0 {
		s.tableScroll = 0
	}
}

func (s *datasetState) setView(v viewMode) {
	if s.view == v {
		return
	}
	s.view = v
	s.cursor = 0
	s.offset = 0
	s.searchQuery = ""
	s.tableScroll = 0
}

// viewData is what the current selection charts and lists.
type viewData struct {
	title   string
	chart   []model.TotalForecast
	headers []string
	rows    [][]string
}

func datasetLabel(name string) string {
	switch name {
	case model.DatasetRevenue:
		return "Revenue"
	case model.DatasetExpenditure:
		return "Expenditure"
	}
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (s datasetState) viewData(dataset string) viewData {
	label := datasetLabel(dataset)
	res := s.result()
	if res == nil {
		return viewData{title: label + " Forecast"}
	}

	switch s.view {
	case viewAccount, viewCostCenter:
		name, ok := s.selected()
		if !ok {
			return viewData{title: label + " Forecast"}
		}
		var points model.ForecastTable
		var vd viewData
		if s.view == viewAccount {
			points = pipeline.SelectAccount(res.Forecasts, name)
			vd.title = fmt.Sprintf("%s Forecast for G/L Account: %s", label, name)
			vd.headers = []string{"Month", "Cost Centre", "Forecast"}
		} else {
			points = pipeline.SelectCostCenter(res.Forecasts, name)
			vd.title = fmt.Sprintf("%s Forecast for Cost Centre: %s", label, name)
			vd.headers = []string{"Month", "G/L Account", "Forecast"}
		}
		vd.chart = pipeline.SumByDate(points)
		for _, p := range points {
			other := p.CostCenter
			if s.view == viewCostCenter {
				other = p.Account
			}
			vd.rows = append(vd.rows, []string{cli.FormatMonth(p.Date), other, cli.FormatAmount(p.Forecast)})
		}
		return vd

	default:
		vd := viewData{
			title:   fmt.Sprintf("Total %s Forecast", label),
			chart:   res.Total,
			headers: []string{"Month", "Total"},
		}
		for _, p := range res.Total {
			vd.rows = append(vd.rows, []string{cli.FormatMonth(p.Date), cli.FormatAmount(p.Forecast)})
		}
		return vd
	}
}

// ─── Keys ───────────────────────────────────────────────────────

func (a App) updateForecastKeys(key string) (tea.Model, tea.Cmd) {
	st := a.active()
	if st == nil || st.result() == nil {
		return a, nil
	}

	switch key {
	case "v":
		st.setView((st.view + 1) % viewMode(len(viewNames)))
	case "a":
		st.setView(viewAccount)
	case "c":
		st.setView(viewCostCenter)
	case "t":
		st.setView(viewTotal)
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "g":
		st.cursor = 0
		st.offset = 0
		st.tableScroll = 0
	case "G":
		st.cursor = len(st.names()) - 1
		st.tableScroll = 0
		st.clamp()
	case "J":
		st.tableScroll++
	case "K":
		if st.tableScroll > 0 {
			st.tableScroll--
		}
	case "/":
		if st.view == viewTotal {
			return a, nil
		}
		st.searching = true
		st.searchInput = newSearchInput()
		st.searchInput.SetValue(st.searchQuery)
		st.searchInput.Focus()
		return a, st.searchInput.Cursor.BlinkCmd()
	case "esc":
		if st.searchQuery != "" {
			st.searchQuery = ""
			st.cursor = 0
			st.offset = 0
		}
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	st := a.active()
	if st == nil || st.searching {
		return
	}
	next := st.cursor + delta
	if next < 0 || next >= len(st.names()) {
		return
	}
	st.cursor = next
	st.tableScroll = 0
}

// updateSearch handles key events while the filter input is focused.
func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := a.active()

	switch msg.String() {
	case "enter":
		st.searchQuery = strings.TrimSpace(st.searchInput.Value())
		st.searching = false
		st.cursor = 0
		st.offset = 0
		st.tableScroll = 0
		return a, nil
	case "esc":
		st.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	st.searchInput, cmd = st.searchInput.Update(msg)
	return a, cmd
}

// ─── Rendering ──────────────────────────────────────────────────

func (a App) renderForecastTab(cw, h int) string {
	st := a.active()
	if st == nil || a.activeTab >= len(a.datasets) {
		return ""
	}
	ds := a.datasets[a.activeTab]
	t := theme.Active

	if st.outcome == nil {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		return components.ContentCard(datasetLabel(ds.Name), muted.Render("Not loaded yet."), cw)
	}
	if st.outcome.Err != nil {
		return renderDatasetError(ds, st.outcome.Err, cw)
	}

	res := st.outcome.Result
	var b strings.Builder

	metrics := components.MetricCardRow(runMetrics(res), cw)
	b.WriteString(metrics)
	b.WriteString("\n")
	b.WriteString(a.renderViewBar(*st, cw))
	b.WriteString("\n")

	remaining := h - lipgloss.Height(metrics) - 1
	vd := st.viewData(ds.Name)
	color := t.SeriesColor(ds.Name)

	chartH := remaining/2 - 3
	if chartH > 14 {
		chartH = 14
	}
	if chartH < 4 {
		chartH = 4
	}

	values, labels := chartSeries(vd.chart)

	switch st.view {
	case viewAccount, viewCostCenter:
		listW := 36
		if a.isCompactLayout() {
			listW = 28
		}
		chartW := cw - listW

		// Card border + title + chart axis and labels
		chartCardH := chartH + 5
		listVisible := chartCardH - 4
		if listVisible < 3 {
			listVisible = 3
		}
		listBody, offset := components.SelectList(st.names(), st.cursor, st.offset, listVisible, components.CardInnerWidth(listW))
		st.offset = offset

		listTitle := "G/L Accounts"
		if st.view == viewCostCenter {
			listTitle = "Cost Centres"
		}
		listCard := components.FocusedCard(listTitle, listBody, listW)
		chartCard := components.ContentCard(vd.title,
			components.LineChart(values, labels, color, components.CardInnerWidth(chartW), chartH), chartW)
		top := components.CardRow([]string{listCard, chartCard})
		b.WriteString(top)
		b.WriteString("\n")

		tableVisible := remaining - lipgloss.Height(top) - 3
		b.WriteString(components.ContentCard("Data",
			renderDataTable(vd.headers, vd.rows, st.tableScroll, tableVisible, components.CardInnerWidth(cw)), cw))

	default:
		var chartCard string
		if a.isCompactLayout() {
			chartCard = components.ContentCard(vd.title,
				components.LineChart(values, labels, color, components.CardInnerWidth(cw), chartH), cw)
		} else {
			widths := components.LayoutRow(cw, 2)
			chartCard = components.CardRow([]string{
				components.ContentCard(vd.title,
					components.LineChart(values, labels, color, components.CardInnerWidth(widths[0]), chartH), widths[0]),
				components.ContentCard("12-Month Forecast by Cost Centre",
					costCenterBars(res.CostCenters, color, components.CardInnerWidth(widths[1]), chartH), widths[1]),
			})
		}
		b.WriteString(chartCard)
		b.WriteString("\n")

		tableVisible := remaining - lipgloss.Height(chartCard) - 3
		b.WriteString(components.ContentCard("Data",
			renderDataTable(vd.headers, vd.rows, st.tableScroll, tableVisible, components.CardInnerWidth(cw)), cw))
	}

	return b.String()
}

func (a App) renderViewBar(st datasetState, cw int) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	activeStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	filterStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	line := labelStyle.Render(" View ")
	for i, name := range viewNames {
		if viewMode(i) == st.view {
			line += activeStyle.Render(" " + name + " ")
		} else {
			line += inactiveStyle.Render(" " + name + " ")
		}
	}

	switch {
	case st.searching:
		line += barStyle.Render("   ") + st.searchInput.View()
	case st.searchQuery != "":
		line += labelStyle.Render("   filter: ") + filterStyle.Render(st.searchQuery) + labelStyle.Render(" [esc] clear")
	}

	return barStyle.Width(cw).Render(line)
}

func runMetrics(res *model.Result) []components.Metric {
	stats := res.Stats

	var sum, first, last float64
	window := "-"
	if n := len(res.Total); n > 0 {
		for _, p := range res.Total {
			sum += p.Forecast
		}
		first, last = res.Total[0].Forecast, res.Total[n-1].Forecast
		window = cli.FormatMonthShort(res.Total[0].Date) + " → " + cli.FormatMonthShort(res.Total[n-1].Date)
	}

	return []components.Metric{
		{
			Label: "Series Fitted",
			Value: fmt.Sprintf("%d of %d", stats.Fitted, stats.Series),
			Delta: fmt.Sprintf("%d short · %d dropped", stats.Skipped, stats.Failed),
		},
		{
			Label:  "Forecast Total",
			Value:  cli.FormatCompact(sum),
			Delta:  "first → last " + cli.FormatChange(first, last),
			Change: last - first,
		},
		{
			Label: "Window",
			Value: window,
			Delta: fmt.Sprintf("%d cost centres", len(pipeline.CostCenters(res.Forecasts))),
		},
		{
			Label: "Rows Read",
			Value: cli.FormatNumber(int64(stats.Rows)),
			Delta: "fit in " + cli.FormatElapsed(stats.Duration),
		},
	}
}

func renderDatasetError(ds pipeline.Dataset, err error, cw int) string {
	t := theme.Active

	errStyle := lipgloss.NewStyle().Foreground(t.Negative).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(errStyle.Render(err.Error()))
	b.WriteString("\n\n")
	if ds.Path != "" {
		b.WriteString(mutedStyle.Render("Input: " + ds.Path))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("Fix the export or run `ledgercast setup`, then press r to retry."))

	return components.FocusedCard(datasetLabel(ds.Name)+" unavailable", b.String(), cw)
}

func chartSeries(points []model.TotalForecast) ([]float64, []string) {
	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		values[i] = p.Forecast
		labels[i] = cli.FormatMonthShort(p.Date)
	}
	return values, labels
}

// costCenterBars charts each cost center's forecast summed over the horizon.
func costCenterBars(rows []model.CostCenterForecast, color lipgloss.Color, width, height int) string {
	var order []string
	sums := make(map[string]float64)
	for _, r := range rows {
		if _, ok := sums[r.CostCenter]; !ok {
			order = append(order, r.CostCenter)
		}
		sums[r.CostCenter] += r.Forecast
	}

	values := make([]float64, len(order))
	for i, cc := range order {
		values[i] = sums[cc]
	}
	return components.BarChart(values, order, color, width, height)
}

// renderDataTable renders a window of rows. The last column is right-aligned.
func renderDataTable(headers []string, rows [][]string, scroll, visible, width int) string {
	t := theme.Active

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(rows) == 0 {
		return mutedStyle.Render("Nothing selected.")
	}
	if visible < 1 {
		visible = 1
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = fmt.Sprintf("%*s", widths[i], c)
			} else {
				parts[i] = fmt.Sprintf("%-*s", widths[i], components.Truncate(c, widths[i]))
			}
		}
		return components.Truncate(strings.Join(parts, "  "), width)
	}

	if maxScroll := len(rows) - visible; scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}
	end := scroll + visible
	if end > len(rows) {
		end = len(rows)
	}

	var b strings.Builder
	b.WriteString(headStyle.Render(format(headers)))
	for _, row := range rows[scroll:end] {
		b.WriteString("\n")
		b.WriteString(cellStyle.Render(format(row)))
	}
	if len(rows) > visible {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("rows %d-%d of %d  [J/K] scroll", scroll+1, end, len(rows))))
	}
	return b.String()
}
