// Package tui provides the interactive Bubble Tea dashboard for ledgercast.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/config"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"
	"github.com/theirongolddev/ledgercast/internal/tui/components"
	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// DataLoadedMsg is sent when every dataset has been loaded and forecast.
type DataLoadedMsg struct {
	Outcomes []pipeline.Outcome
	LoadTime time.Duration
}

// ProgressMsg reports series fitting progress for one dataset.
type ProgressMsg struct {
	Dataset string
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Outcomes []pipeline.Outcome
	LoadTime time.Duration
}

// App is the root Bubble Tea model.
type App struct {
	ctx      context.Context
	datasets []pipeline.Dataset
	loader   pipeline.Loader
	opts     pipeline.Options

	// Data, one state per dataset tab
	tabs        []datasetState
	loaded      bool
	loadTime    time.Duration
	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// First-run setup (huh form), shown before the first load
	setupForm *huh.Form
	setupVals *SetupValues

	// Loading: channel-based progress subscription
	spinner         spinner.Model
	progress        int
	progressMax     int
	progressDataset string
	loadSub         chan tea.Msg // progress + completion messages from loader goroutine
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5
)

// NewApp creates the dashboard with one tab per dataset. When no config
// file exists yet, the setup form runs before anything is loaded.
func NewApp(ctx context.Context, datasets []pipeline.Dataset, loader pipeline.Loader, opts pipeline.Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	tabs := make([]datasetState, len(datasets))
	for i := range tabs {
		tabs[i] = newDatasetState()
	}

	a := App{
		ctx:      ctx,
		datasets: datasets,
		loader:   loader,
		opts:     opts,
		tabs:     tabs,
		spinner:  sp,
		loadSub:  make(chan tea.Msg, 1),
	}

	if !config.Exists() {
		cfg := config.DefaultConfig()
		for _, ds := range datasets {
			switch ds.Name {
			case model.DatasetRevenue:
				cfg.General.RevenuePath = ds.Path
			case model.DatasetExpenditure:
				cfg.General.ExpenditurePath = ds.Path
			}
		}
		if opts.BaseYear != 0 {
			cfg.Forecast.BaseYear = opts.BaseYear
		}
		a.setupVals = SetupValuesFrom(cfg, ".")
		a.setupForm = NewSetupForm(a.setupVals)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.setupForm != nil {
		return tea.Batch(tea.EnableMouseCellMotion, a.setupForm.Init())
	}
	return tea.Batch(tea.EnableMouseCellMotion, a.startLoad())
}

func (a App) startLoad() tea.Cmd {
	return tea.Batch(
		loadDataCmd(a.ctx, a.datasets, a.loader, a.opts, a.loadSub),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}

		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveCursor(-1)
			return a, nil
		case tea.MouseButtonWheelDown:
			a.moveCursor(1)
			return a, nil
		case tea.MouseButtonLeft:
			// The tab bar is the first line
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 && tab < len(a.tabs) {
					a.activeTab = tab
				}
			}
			return a, nil
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if !a.loaded {
			return a, nil
		}

		if st := a.active(); st != nil && st.searching {
			return a.updateSearch(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.refreshing {
				a.refreshing = true
				return a, refreshDataCmd(a.ctx, a.datasets, a.loader, a.opts)
			}
			return a, nil
		case "left", "shift+tab":
			if n := len(a.tabs); n > 0 {
				a.activeTab = (a.activeTab - 1 + n) % n
			}
			return a, nil
		case "right", "tab":
			if n := len(a.tabs); n > 0 {
				a.activeTab = (a.activeTab + 1) % n
			}
			return a, nil
		}

		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 && idx < len(a.tabs) {
				a.activeTab = idx
				return a, nil
			}
		}

		return a.updateForecastKeys(key)

	case DataLoadedMsg:
		a.setOutcomes(msg.Outcomes)
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		return a, nil

	case ProgressMsg:
		a.progressDataset = msg.Dataset
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Outcomes != nil {
			a.setOutcomes(msg.Outcomes)
			a.loadTime = msg.LoadTime
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if st := a.active(); st != nil && st.searching {
		var cmd tea.Cmd
		st.searchInput, cmd = st.searchInput.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.applySetup()
		a.setupForm = nil
		return a, a.startLoad()
	case huh.StateAborted:
		a.setupForm = nil
		return a, a.startLoad()
	}

	return a, cmd
}

// applySetup saves the form answers and points the datasets at them.
func (a *App) applySetup() {
	cfg, _ := config.Load()
	a.setupVals.Apply(&cfg)
	_ = config.Save(cfg)

	datasets := make([]pipeline.Dataset, len(a.datasets))
	copy(datasets, a.datasets)
	for i := range datasets {
		switch datasets[i].Name {
		case model.DatasetRevenue:
			datasets[i].Path = cfg.General.RevenuePath
		case model.DatasetExpenditure:
			datasets[i].Path = cfg.General.ExpenditurePath
		}
	}
	a.datasets = datasets
	a.opts.BaseYear = cfg.Forecast.BaseYear
	theme.SetActive(cfg.Appearance.Theme)
}

// setOutcomes stores run results by dataset, keeping each tab's view state.
func (a *App) setOutcomes(outcomes []pipeline.Outcome) {
	for i := range outcomes {
		if i >= len(a.tabs) {
			break
		}
		o := outcomes[i]
		a.tabs[i].outcome = &o
		a.tabs[i].clamp()
	}
}

func (a *App) active() *datasetState {
	if a.activeTab < 0 || a.activeTab >= len(a.tabs) {
		return nil
	}
	return &a.tabs[a.activeTab]
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.setupForm != nil {
		return a.setupForm.View()
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  ledgercast needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	w := a.width
	h := a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ ledgercast"))
	b.WriteString(subtitleStyle.Render(" · Ledger Forecasts"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := 40
		if barW > w-40 {
			barW = w - 40
		}
		if barW < 20 {
			barW = 20
		}
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Fitting series\n\n"))
		b.WriteString(components.LabeledProgress(a.progressDataset, a.progress, a.progressMax, 12, barW))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Reading exports..."))
	}

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"1 2", "Revenue / Expenditure"},
			{"← → tab", "Previous / Next tab"},
			{"v", "Cycle view"},
			{"a c t", "Account / Cost centre / Total view"},
			{"j k g G", "Move selection"},
			{"J K", "Scroll data table"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"/", "Filter the list"},
			{"Esc", "Clear filter"},
			{"r", "Re-run forecasts"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	card := cardStyle.Render(b.String())

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	failed := make([]bool, len(a.tabs))
	for i, st := range a.tabs {
		failed[i] = st.outcome != nil && st.outcome.Err != nil
	}

	header := components.RenderTabBar(a.activeTab, failed, w)

	hints := "[?]help [v]view [/]filter [r]refresh [q]uit"
	info := fmt.Sprintf("base %d · %s", a.baseYear(), cli.FormatElapsed(a.loadTime))
	if st := a.active(); st != nil && st.outcome != nil && st.outcome.CacheHit {
		info = "cached · " + info
	}
	statusBar := components.RenderStatusBar(w, hints, info, a.refreshing)

	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	content := a.renderForecastTab(cw, contentH)

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) baseYear() int {
	if a.opts.BaseYear == 0 {
		return pipeline.DefaultBaseYear
	}
	return a.opts.BaseYear
}

// ─── Loading ────────────────────────────────────────────────────

// loadDataCmd runs every dataset in a background goroutine, streaming
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(ctx context.Context, datasets []pipeline.Dataset, loader pipeline.Loader, opts pipeline.Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()
			outcomes := make([]pipeline.Outcome, len(datasets))
			for i, ds := range datasets {
				name := ds.Name
				o := opts
				// Non-blocking send so workers aren't stalled; the next update catches up.
				o.Progress = func(done, total int) {
					select {
					case sub <- ProgressMsg{Dataset: name, Current: done, Total: total}:
					default:
					}
				}
				outcomes[i] = pipeline.RunOne(ctx, ds, loader, o)
			}
			sub <- DataLoadedMsg{Outcomes: outcomes, LoadTime: time.Since(start)}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd re-runs every dataset without progress reporting.
func refreshDataCmd(ctx context.Context, datasets []pipeline.Dataset, loader pipeline.Loader, opts pipeline.Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		opts.Progress = nil
		outcomes := pipeline.RunAll(ctx, datasets, loader, opts)
		return RefreshDataMsg{Outcomes: outcomes, LoadTime: time.Since(start)}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	padding := strings.Repeat("\n", h-len(lines))
	return s + padding
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)

		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
