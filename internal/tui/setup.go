package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/ledgercast/internal/config"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/source"
	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	RevenuePath     string
	ExpenditurePath string
	BaseYear        string
	Theme           string
}

// SetupValuesFrom prefills the form from cfg. Empty paths are filled from
// exports found in dir, when their names identify the dataset.
func SetupValuesFrom(cfg config.Config, dir string) *SetupValues {
	vals := &SetupValues{
		RevenuePath:     config.RevenuePath(cfg),
		ExpenditurePath: config.ExpenditurePath(cfg),
		BaseYear:        strconv.Itoa(cfg.Forecast.BaseYear),
		Theme:           cfg.Appearance.Theme,
	}
	if vals.Theme == "" {
		vals.Theme = theme.FlexokiDark.Name
	}

	if dir == "" || (vals.RevenuePath != "" && vals.ExpenditurePath != "") {
		return vals
	}
	files, err := source.Discover(dir)
	if err != nil {
		return vals
	}
	if f, ok := source.Pick(files, model.DatasetRevenue); ok && vals.RevenuePath == "" {
		vals.RevenuePath = f.Path
	}
	if f, ok := source.Pick(files, model.DatasetExpenditure); ok && vals.ExpenditurePath == "" {
		vals.ExpenditurePath = f.Path
	}
	return vals
}

// Apply writes the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.RevenuePath = strings.TrimSpace(v.RevenuePath)
	cfg.General.ExpenditurePath = strings.TrimSpace(v.ExpenditurePath)
	if y, err := strconv.Atoi(strings.TrimSpace(v.BaseYear)); err == nil {
		cfg.Forecast.BaseYear = y
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
}

// NewSetupForm builds the first-run form bound to vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, th := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(th.Name, th.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to ledgercast").
				Description("Point it at your revenue and expenditure exports (.csv or .xlsx).\nLeave a path blank to skip that dataset."),
			huh.NewInput().
				Title("Revenue export").
				Placeholder("revenue.xlsx").
				Value(&vals.RevenuePath).
				Validate(ValidateInputPath),
			huh.NewInput().
				Title("Expenditure export").
				Placeholder("expenditure.xlsx").
				Value(&vals.ExpenditurePath).
				Validate(ValidateInputPath),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Base year").
				Description("Calendar year of the first month column").
				Value(&vals.BaseYear).
				Validate(ValidateBaseYear),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeCatppuccin()).WithShowHelp(true)
}

// ValidateInputPath accepts an empty path or a readable export with a
// supported extension.
func ValidateInputPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := source.DetectFormat(s); err != nil {
		return err
	}
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	return nil
}

// ValidateBaseYear accepts a four-digit year.
func ValidateBaseYear(s string) error {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1900 || y > 2200 {
		return errors.New("enter a four-digit year")
	}
	return nil
}
