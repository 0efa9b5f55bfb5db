package tui

import (
	"errors"
	"net/url"
	"strings"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds the values bound to the setup form.
type setupValues struct {
	carrier       string
	extractionURL string
	apiKey        string
	theme         string
}

func newSetupValues(carrier string) setupValues {
	cfg, _ := config.Load()
	vals := setupValues{
		carrier:       carrier,
		extractionURL: cfg.Extraction.BaseURL,
		theme:         cfg.Appearance.Theme,
	}
	if cfg.General.DefaultCarrier != "" {
		vals.carrier = cfg.General.DefaultCarrier
	}
	if vals.theme == "" {
		vals.theme = theme.FlexokiDark.Name
	}
	return vals
}

// newSetupForm builds the setup form used by both the TUI and the setup
// command. Values are written back through vals when the form completes.
func newSetupForm(vals *setupValues) *huh.Form {
	carrierOpts := make([]huh.Option[string], 0, len(config.Carriers))
	for _, c := range config.Carriers {
		carrierOpts = append(carrierOpts, huh.NewOption(config.CarrierNames[c], c))
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to billcheck").
				Description("Analyze wireless bills and estimate what switching carriers saves.\n\n"+
					"Settings are saved to "+config.ConfigPath()),

			huh.NewSelect[string]().
				Title("Carrier preference").
				Description("Which network works best where you are. Quotes are priced against it.").
				Options(carrierOpts...).
				Value(&vals.carrier),

			huh.NewInput().
				Title("Extraction service URL").
				Description("Turns PDF and image bills into records. Leave blank to analyze JSON only.").
				Placeholder("https://extract.example.com").
				Validate(validateServiceURL).
				Value(&vals.extractionURL),

			huh.NewInput().
				Title("Extraction API key").
				Description("Leave blank to keep the current key, or set BILLCHECK_API_KEY.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.apiKey),

			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	).WithTheme(huh.ThemeCharm())
}

func validateServiceURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

// apply copies the form values into cfg.
func (v setupValues) apply(cfg *config.Config) {
	if config.IsCarrier(v.carrier) {
		cfg.General.DefaultCarrier = config.NormalizeCarrierID(v.carrier)
	}
	cfg.Extraction.BaseURL = strings.TrimSpace(v.extractionURL)
	if key := strings.TrimSpace(v.apiKey); key != "" {
		cfg.Extraction.APIKey = key
	}
	if v.theme != "" {
		cfg.Appearance.Theme = v.theme
	}
}

func (a *App) saveSetupConfig() error {
	cfg, _ := config.Load()
	a.setupVals.apply(&cfg)

	theme.SetActive(cfg.Appearance.Theme)
	for i, c := range config.Carriers {
		if c == cfg.General.DefaultCarrier {
			a.carrierIdx = i
		}
	}
	return config.Save(cfg)
}

// RunSetup runs the setup form standalone and saves the result.
func RunSetup() (config.Config, error) {
	vals := newSetupValues(config.CarrierVerizon)
	if err := newSetupForm(&vals).Run(); err != nil {
		return config.Config{}, err
	}
	cfg, _ := config.Load()
	vals.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, config.Save(cfg)
}
