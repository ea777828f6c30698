package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/ledgercast/internal/config"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
)

func testForecasts() model.ForecastTable {
	start := pipeline.BaseMonth(2024)
	var points model.ForecastTable
	for _, cc := range []string{"CC100", "CC200"} {
		for _, acct := range []string{"4000", "4100"} {
			for h := 0; h < pipeline.Horizon; h++ {
				points = append(points, model.ForecastPoint{
					Date:       start.AddDate(0, h, 0),
					CostCenter: cc,
					Account:    acct,
					Forecast:   100 + float64(h),
				})
			}
		}
	}
	return points
}

func testOutcomes() []pipeline.Outcome {
	forecasts := testForecasts()
	res := &model.Result{
		Dataset:     model.DatasetRevenue,
		Forecasts:   forecasts,
		CostCenters: pipeline.RollUpCostCenters(forecasts),
		Total:       pipeline.RollUpTotal(forecasts),
		Stats:       model.RunStats{Rows: 4, Series: 5, Fitted: 4, Skipped: 1},
	}
	return []pipeline.Outcome{
		{Dataset: pipeline.Dataset{Name: model.DatasetRevenue, Path: "revenue.csv"}, Result: res},
		{
			Dataset: pipeline.Dataset{Name: model.DatasetExpenditure, Path: "expenditure.csv"},
			Err:     &pipeline.DatasetError{Dataset: model.DatasetExpenditure, Err: pipeline.ErrNoForecasts},
		},
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	a := App{
		ctx: context.Background(),
		datasets: []pipeline.Dataset{
			{Name: model.DatasetRevenue, Path: "revenue.csv"},
			{Name: model.DatasetExpenditure, Path: "expenditure.csv"},
		},
		tabs:    []datasetState{newDatasetState(), newDatasetState()},
		width:   140,
		height:  45,
		loadSub: make(chan tea.Msg, 1),
	}
	m, _ := a.Update(DataLoadedMsg{Outcomes: testOutcomes(), LoadTime: time.Second})
	return m.(App)
}

func press(t *testing.T, m tea.Model, keys ...string) tea.Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestDataLoadedShowsAccountView(t *testing.T) {
	a := loadedApp(t)
	if !a.loaded {
		t.Fatal("app should be loaded after DataLoadedMsg")
	}

	view := a.View()
	if !strings.Contains(view, "Revenue Forecast for G/L Account: 4000") {
		t.Fatalf("view missing account chart title:\n%s", view)
	}
}

func TestViewKeysSwitchViews(t *testing.T) {
	m := press(t, loadedApp(t), "c")
	if got := m.(App).tabs[0].view; got != viewCostCenter {
		t.Fatalf("view after c = %d, want %d", got, viewCostCenter)
	}
	if !strings.Contains(m.View(), "Revenue Forecast for Cost Centre: CC100") {
		t.Fatal("cost centre view should title the first cost centre")
	}

	m = press(t, m, "t")
	if !strings.Contains(m.View(), "Total Revenue Forecast") {
		t.Fatal("total view should render the total title")
	}

	m = press(t, m, "v")
	if got := m.(App).tabs[0].view; got != viewAccount {
		t.Fatalf("v from total = %d, want account view", got)
	}
}

func TestFailedDatasetRendersError(t *testing.T) {
	m := press(t, loadedApp(t), "2")
	if got := m.(App).activeTab; got != 1 {
		t.Fatalf("activeTab = %d, want 1", got)
	}
	view := m.View()
	if !strings.Contains(view, "expenditure: no series could be forecast") {
		t.Fatalf("error tab should name the dataset and reason:\n%s", view)
	}

	// View keys are ignored on a failed tab
	m = press(t, m, "c")
	if got := m.(App).tabs[1].view; got != viewAccount {
		t.Fatalf("failed tab view = %d, want unchanged", got)
	}
}

func TestSearchFiltersPickList(t *testing.T) {
	m := press(t, loadedApp(t), "/")
	if !m.(App).tabs[0].searching {
		t.Fatal("/ should start search mode")
	}

	m = press(t, m, "41", "enter")
	st := m.(App).tabs[0]
	if st.searching {
		t.Fatal("enter should leave search mode")
	}
	if st.searchQuery != "41" {
		t.Fatalf("searchQuery = %q, want %q", st.searchQuery, "41")
	}
	if name, ok := st.selected(); !ok || name != "4100" {
		t.Fatalf("selected = %q, %v, want 4100", name, ok)
	}

	m = press(t, m, "esc")
	if q := m.(App).tabs[0].searchQuery; q != "" {
		t.Fatalf("esc should clear the filter, got %q", q)
	}
}

func TestRefreshKeepsViewState(t *testing.T) {
	m := press(t, loadedApp(t), "c", "j")
	m, _ = m.Update(RefreshDataMsg{Outcomes: testOutcomes(), LoadTime: time.Second})

	st := m.(App).tabs[0]
	if st.view != viewCostCenter || st.cursor != 1 {
		t.Fatalf("state after refresh = view %d cursor %d, want %d and 1", st.view, st.cursor, viewCostCenter)
	}
	if m.(App).refreshing {
		t.Fatal("refreshing should clear after RefreshDataMsg")
	}
}

func TestCursorClampsToList(t *testing.T) {
	m := press(t, loadedApp(t), "j", "j", "j")
	if got := m.(App).tabs[0].cursor; got != 1 {
		t.Fatalf("cursor = %d, want 1 (two accounts)", got)
	}
	m = press(t, m, "g")
	if got := m.(App).tabs[0].cursor; got != 0 {
		t.Fatalf("cursor after g = %d, want 0", got)
	}
	m = press(t, m, "G")
	if got := m.(App).tabs[0].cursor; got != 1 {
		t.Fatalf("cursor after G = %d, want 1", got)
	}
}

func TestQuitAndHelp(t *testing.T) {
	m := press(t, loadedApp(t), "?")
	if !m.(App).showHelp {
		t.Fatal("? should open help")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help view should render shortcuts")
	}
	m = press(t, m, "x")
	if m.(App).showHelp {
		t.Fatal("any key should close help")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}

func TestNarrowTerminal(t *testing.T) {
	a := loadedApp(t)
	a.width = 60
	if !strings.Contains(a.View(), "too narrow") {
		t.Fatal("narrow terminal should render the width warning")
	}
}

func TestProgressMsgUpdatesLoadingView(t *testing.T) {
	a := App{tabs: []datasetState{newDatasetState()}, width: 100, height: 30, loadSub: make(chan tea.Msg, 1)}
	m, cmd := a.Update(ProgressMsg{Dataset: model.DatasetRevenue, Current: 3, Total: 10})
	if cmd == nil {
		t.Fatal("ProgressMsg should keep waiting for loader messages")
	}
	app := m.(App)
	if app.progress != 3 || app.progressMax != 10 || app.progressDataset != model.DatasetRevenue {
		t.Fatalf("progress = %d/%d %q", app.progress, app.progressMax, app.progressDataset)
	}
	if !strings.Contains(app.View(), "3/10") {
		t.Fatal("loading view should show fitting progress")
	}
}

func TestViewDataSelectsExactly(t *testing.T) {
	a := loadedApp(t)
	st := a.tabs[0]

	vd := st.viewData(model.DatasetRevenue)
	if len(vd.rows) != 2*pipeline.Horizon {
		t.Fatalf("account rows = %d, want %d", len(vd.rows), 2*pipeline.Horizon)
	}
	if len(vd.chart) != pipeline.Horizon {
		t.Fatalf("chart points = %d, want %d", len(vd.chart), pipeline.Horizon)
	}
	// Two cost centres of 100 in the first month
	if vd.chart[0].Forecast != 200 {
		t.Fatalf("first chart point = %v, want 200", vd.chart[0].Forecast)
	}

	st.setView(viewTotal)
	vd = st.viewData(model.DatasetRevenue)
	if vd.title != "Total Revenue Forecast" || len(vd.rows) != pipeline.Horizon {
		t.Fatalf("total view = %q with %d rows", vd.title, len(vd.rows))
	}
	if vd.chart[0].Forecast != 400 {
		t.Fatalf("first total = %v, want 400", vd.chart[0].Forecast)
	}
}

func TestRenderDataTableScrolls(t *testing.T) {
	rows := [][]string{{"Jan 2024", "1.00"}, {"Feb 2024", "2.00"}, {"Mar 2024", "3.00"}}

	out := renderDataTable([]string{"Month", "Total"}, rows, 1, 2, 60)
	if strings.Contains(out, "Jan 2024") || !strings.Contains(out, "Mar 2024") {
		t.Fatalf("scrolled table should start at row 2:\n%s", out)
	}
	if !strings.Contains(out, "rows 2-3 of 3") {
		t.Fatalf("missing scroll hint:\n%s", out)
	}

	out = renderDataTable([]string{"Month", "Total"}, rows, 10, 5, 60)
	if !strings.Contains(out, "Jan 2024") {
		t.Fatal("oversized scroll should clamp to the first row")
	}
}

func TestSetupValuesDiscoverExports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"revenue_2024.csv", "expenses.xlsx", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("LEDGERCAST_REVENUE", "")
	t.Setenv("LEDGERCAST_EXPENDITURE", "")

	vals := SetupValuesFrom(config.DefaultConfig(), dir)
	if filepath.Base(vals.RevenuePath) != "revenue_2024.csv" {
		t.Errorf("RevenuePath = %q, want revenue_2024.csv", vals.RevenuePath)
	}
	if filepath.Base(vals.ExpenditurePath) != "expenses.xlsx" {
		t.Errorf("ExpenditurePath = %q, want expenses.xlsx", vals.ExpenditurePath)
	}
	if vals.BaseYear != "2023" {
		t.Errorf("BaseYear = %q, want 2023", vals.BaseYear)
	}

	vals.BaseYear = "2030"
	cfg := config.DefaultConfig()
	vals.Apply(&cfg)
	if cfg.Forecast.BaseYear != 2030 || cfg.General.RevenuePath != vals.RevenuePath {
		t.Errorf("Apply = %+v", cfg)
	}
}

func TestSetupValidators(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "revenue.csv")
	if err := os.WriteFile(good, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputPath(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
	if err := ValidateInputPath(good); err != nil {
		t.Errorf("existing csv: %v", err)
	}
	if err := ValidateInputPath(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("missing file should fail")
	}
	if err := ValidateInputPath(filepath.Join(dir, "ledger.pdf")); err == nil {
		t.Error("unsupported extension should fail")
	}

	if err := ValidateBaseYear("2023"); err != nil {
		t.Errorf("2023: %v", err)
	}
	for _, bad := range []string{"", "23", "twenty"} {
		if err := ValidateBaseYear(bad); err == nil {
			t.Errorf("ValidateBaseYear(%q) should fail", bad)
		}
	}
}

func TestApplySetupPointsDatasets(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := App{
		datasets: []pipeline.Dataset{{Name: model.DatasetRevenue}, {Name: model.DatasetExpenditure}},
		setupVals: &SetupValues{
			RevenuePath:     "in/rev.csv",
			ExpenditurePath: "in/exp.xlsx",
			BaseYear:        "2031",
			Theme:           "tokyo-night",
		},
	}
	a.applySetup()

	if a.datasets[0].Path != "in/rev.csv" || a.datasets[1].Path != "in/exp.xlsx" {
		t.Fatalf("datasets = %+v", a.datasets)
	}
	if a.opts.BaseYear != 2031 {
		t.Fatalf("BaseYear = %d, want 2031", a.opts.BaseYear)
	}
	if !config.Exists() {
		t.Fatal("setup should save the config file")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Appearance.Theme != "tokyo-night" {
		t.Fatalf("saved theme = %q", cfg.Appearance.Theme)
	}
}

func TestLoadDataCmdStreamsOutcomes(t *testing.T) {
	sub := make(chan tea.Msg, 1)
	datasets := []pipeline.Dataset{{Name: model.DatasetRevenue}}

	msg := loadDataCmd(context.Background(), datasets, pipeline.Loader{}, pipeline.DefaultOptions(), sub)()
	loaded, ok := msg.(DataLoadedMsg)
	if !ok {
		t.Fatalf("first message = %T, want DataLoadedMsg", msg)
	}
	if len(loaded.Outcomes) != 1 || !errors.Is(loaded.Outcomes[0].Err, pipeline.ErrNoInput) {
		t.Fatalf("outcomes = %+v, want one ErrNoInput", loaded.Outcomes)
	}
}
