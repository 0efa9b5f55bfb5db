// Package tui provides the interactive Bubble Tea front end for billcheck.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/session"
	"github.com/theirongolddev/billcheck/internal/source"
	"github.com/theirongolddev/billcheck/internal/store"
	"github.com/theirongolddev/billcheck/internal/tui/components"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// AnalysisDoneMsg is sent when an analysis started from the TUI finishes.
type AnalysisDoneMsg struct {
	Analysis  *model.BillAnalysis
	Err       error
	Imported  int
	Unchanged int
}

// ProgressMsg reports directory import progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// HistoryLoadedMsg carries stored analyses for the History tab.
type HistoryLoadedMsg struct {
	Analyses []model.BillAnalysis
	Err      error
}

// Store is what the TUI needs from persistence. It may be nil.
type Store interface {
	ListAnalyses(opts store.ListOptions) ([]model.BillAnalysis, error)
	pipeline.FileTracker
}

// Options configures NewApp.
type Options struct {
	Analyzer *pipeline.Analyzer
	Store    Store
	Carrier  string
	// Path is analyzed immediately when set.
	Path      string
	NeedSetup bool
	Logger    logger.Logger
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabLines
	tabBreakdown
	tabQuote
	tabHistory
)

// App is the root Bubble Tea model.
type App struct {
	analyzer *pipeline.Analyzer
	store    Store
	machine  *session.Machine
	log      logger.Logger

	// Quote for the selected carrier
	carrierIdx int
	quote      model.SavingsQuote

	// History tab
	history    []model.BillAnalysis
	historyErr error

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	lines     linesState
	notice    string

	// Empty state: path prompt
	pathInput textinput.Model

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals setupValues
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
	cancel      context.CancelFunc
	initialPath string
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	historyLimit     = 24
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	ti := textinput.New()
	ti.Placeholder = "path to a bill PDF, image, JSON export or folder"
	ti.CharLimit = 1024
	ti.Width = 60
	ti.Focus()

	carrierIdx := 0
	for i, c := range config.Carriers {
		if c == config.NormalizeCarrierID(opts.Carrier) {
			carrierIdx = i
		}
	}

	machine := session.New(func(from session.State, to session.Snapshot) {
		log.Debug("session transition", "from", from, "to", to.State, "source", to.Source)
	})

	return App{
		analyzer:    opts.Analyzer,
		store:       opts.Store,
		machine:     machine,
		log:         log,
		carrierIdx:  carrierIdx,
		pathInput:   ti,
		needSetup:   opts.NeedSetup,
		spinner:     sp,
		loadSub:     make(chan tea.Msg, 1),
		initialPath: opts.Path,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		textinput.Blink,
		loadHistoryCmd(a.store),
	}
	if a.needSetup {
		cmds = append(cmds, func() tea.Msg { return setupMsg{} })
	}
	if a.initialPath != "" {
		cmds = append(cmds, func() tea.Msg { return startMsg{path: a.initialPath} })
	}
	return tea.Batch(cmds...)
}

// startMsg asks the app to begin analyzing path.
type startMsg struct{ path string }

// setupMsg opens the first-run setup form.
type setupMsg struct{}

// carrier returns the selected carrier preference.
func (a App) carrier() string {
	return config.Carriers[a.carrierIdx]
}

// begin moves the session to Loading and starts the analysis.
func (a App) begin(path string) (App, tea.Cmd) {
	path = strings.TrimSpace(path)
	if path == "" {
		return a.reopenLatest()
	}
	if err := a.machine.Begin(path); err != nil {
		return a, nil
	}
	a.notice = ""
	a.progress, a.progressMax = 0, 0
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	return a, tea.Batch(
		analyzeCmd(ctx, a.analyzer, a.store, path, a.loadSub),
		a.spinner.Tick,
	)
}

// reopenLatest shows the most recent stored analysis without re-running it.
func (a App) reopenLatest() (App, tea.Cmd) {
	if len(a.history) == 0 {
		a.notice = "Enter a path to analyze"
		return a, nil
	}
	latest := a.history[0]
	if err := a.machine.Begin("history"); err != nil {
		return a, nil
	}
	_ = a.machine.Succeed(&latest)
	a.onReady()
	return a, nil
}

// onReady refreshes everything derived from the current analysis.
func (a *App) onReady() {
	a.pathInput.Blur()
	a.activeTab = tabOverview
	a.lines = linesState{}
	a.requote()
}

func (a *App) requote() {
	if a.analyzer == nil {
		a.quote = pipeline.EstimateSavings(a.carrier(), a.machine.Analysis())
		return
	}
	a.quote = a.analyzer.Quote(a.carrier(), a.machine.Analysis())
}

func (a App) reset() App {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	_ = a.machine.Reset()
	a.pathInput.SetValue("")
	a.pathInput.Focus()
	a.showHelp = false
	a.notice = ""
	return a
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
		if a.machine.State() != session.StateReady || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabLines {
				a.lines.up()
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabLines {
				a.lines.down(a.lineCount())
			}
		case tea.MouseButtonLeft:
			// Tab bar is the first line
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.cancel != nil {
				a.cancel()
			}
			return a, tea.Quit
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		return a.updateKey(msg)

	case setupMsg:
		a.startSetup()
		return a, a.setupForm.Init()

	case startMsg:
		if a.needSetup {
			a.pathInput.SetValue(msg.path)
			return a, nil
		}
		return a.begin(msg.path)

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case AnalysisDoneMsg:
		a.cancel = nil
		if msg.Err != nil {
			_ = a.machine.Fail(msg.Err)
			return a, nil
		}
		if err := a.machine.Succeed(msg.Analysis); err != nil {
			_ = a.machine.Fail(err)
			return a, nil
		}
		if msg.Imported > 1 || msg.Unchanged > 0 {
			a.notice = fmt.Sprintf("Imported %d bills (%d unchanged), showing the last", msg.Imported, msg.Unchanged)
		}
		a.onReady()
		return a, loadHistoryCmd(a.store)

	case HistoryLoadedMsg:
		a.history = msg.Analyses
		a.historyErr = msg.Err
		return a, nil

	case spinner.TickMsg:
		if a.machine.State() == session.StateLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.machine.State() == session.StateEmpty {
		var cmd tea.Cmd
		a.pathInput, cmd = a.pathInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch a.machine.State() {
	case session.StateEmpty:
		switch key {
		case "enter":
			return a.begin(a.pathInput.Value())
		case "esc":
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.pathInput, cmd = a.pathInput.Update(msg)
		return a, cmd

	case session.StateLoading:
		if key == "esc" && a.cancel != nil {
			a.cancel()
		}
		return a, nil

	case session.StateFailed:
		switch key {
		case "r", "enter":
			return a.begin(a.machine.Snapshot().Source)
		case "esc", "n":
			return a.reset(), nil
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	// Ready
	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabLines {
		switch key {
		case "j", "down":
			a.lines.down(a.lineCount())
			return a, nil
		case "k", "up":
			a.lines.up()
			return a, nil
		case "g":
			a.lines.cursor = 0
			return a, nil
		case "G":
			a.lines.cursor = max(0, a.lineCount()-1)
			return a, nil
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "n", "esc":
		return a.reset(), nil
	case "r":
		src := a.machine.Snapshot().Source
		if src != "" && src != "history" {
			return a.begin(src)
		}
		return a, nil
	case "c":
		a.carrierIdx = (a.carrierIdx + 1) % len(config.Carriers)
		a.requote()
		return a, nil
	case "s":
		a.startSetup()
		return a, a.setupForm.Init()
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a *App) startSetup() {
	a.setupVals = newSetupValues(a.carrier())
	a.setupForm = newSetupForm(&a.setupVals)
	if a.width > 0 {
		a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
	}
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		if err := a.saveSetupConfig(); err != nil {
			a.notice = "Could not save config: " + err.Error()
		}
		a.needSetup = false
		a.setupForm = nil
		a.requote()
		if path := strings.TrimSpace(a.pathInput.Value()); path != "" && a.machine.State() == session.StateEmpty {
			return a.begin(path)
		}
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) lineCount() int {
	if an := a.machine.Analysis(); an != nil {
		return len(an.PhoneLines)
	}
	return 0
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
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}

	snap := a.machine.Snapshot()
	switch snap.State {
	case session.StateLoading:
		return a.viewLoading(snap)
	case session.StateFailed:
		return a.viewFailed(snap)
	case session.StateReady:
		if a.showHelp {
			return a.viewHelp()
		}
		return a.viewMain(snap)
	}
	return a.viewEmpty()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  billcheck needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

// centeredCard renders body in an accent-bordered card centered on screen.
func (a App) centeredCard(body string) string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) logo() string {
	t := theme.Active
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	return logoStyle.Render("◈ billcheck") + subtitleStyle.Render(" · Wireless Bill Analysis")
}

func (a App) viewEmpty() string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	var b strings.Builder
	b.WriteString(a.logo())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("Bill to analyze"))
	b.WriteString("\n")
	b.WriteString(a.pathInput.View())
	b.WriteString("\n\n")
	if a.notice != "" {
		b.WriteString(warnStyle.Render(a.notice))
		b.WriteString("\n\n")
	}
	if len(a.history) > 0 {
		latest := a.history[0]
		b.WriteString(dimStyle.Render(fmt.Sprintf("Enter on an empty path reopens %s · %s (%d stored)",
			latest.AccountNumber, latest.BillingPeriod, len(a.history))))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("Enter to analyze · Esc to quit"))
	return a.centeredCard(b.String())
}

func (a App) viewLoading(snap session.Snapshot) string {
	t := theme.Active
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(a.logo())
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := 40
		if barW > a.width-30 {
			barW = a.width - 30
		}
		if barW < 20 {
			barW = 20
		}
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Importing bills\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", a.progress)))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", a.progressMax)))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Analyzing " + truncStr(snap.Source, 50)))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Esc to cancel"))
	return a.centeredCard(b.String())
}

func (a App) viewFailed(snap session.Snapshot) string {
	t := theme.Active
	errTitle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Width(60)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(a.logo())
	b.WriteString("\n\n")
	b.WriteString(errTitle.Render("Analysis failed"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(snap.Err))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("r to retry · Esc for a new bill · q to quit"))
	return a.centeredCard(b.String())
}

func (a App) viewHelp() string {
	t := theme.Active

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"o l b u h", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move through lines"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"c", "Cycle carrier preference"},
			{"r", "Re-run this analysis"},
			{"n / Esc", "Analyze another bill"},
			{"s", "Settings"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain(snap session.Snapshot) string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height
	an := snap.Analysis

	header := components.RenderTabBar(a.activeTab, w)

	detail := config.CarrierNames[a.carrier()] + " · " + truncStr(snap.Source, 40)
	if a.notice != "" {
		detail = a.notice
	}
	statusBar := components.RenderStatusBar(w, snap.State.String(), detail)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(an, cw)
	case tabLines:
		content = a.renderLinesTab(an, cw, contentH)
	case tabBreakdown:
		content = a.renderBreakdownTab(an, cw)
	case tabQuote:
		content = a.renderQuoteTab(an, cw)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

// analyzeCmd runs the analysis in a background goroutine. Directory imports
// stream ProgressMsg updates through sub before the final AnalysisDoneMsg.
func analyzeCmd(ctx context.Context, an *pipeline.Analyzer, tracker pipeline.FileTracker, path string, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			sub <- runAnalysis(ctx, an, tracker, path, sub)
		}()
		return <-sub
	}
}

func runAnalysis(ctx context.Context, an *pipeline.Analyzer, tracker pipeline.FileTracker, path string, sub chan tea.Msg) AnalysisDoneMsg {
	if an == nil {
		return AnalysisDoneMsg{Err: errors.New("analyzer not configured")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return AnalysisDoneMsg{Err: err}
	}

	if !info.IsDir() {
		df, err := source.Discover(path)
		if err != nil {
			return AnalysisDoneMsg{Err: err}
		}
		analysis, err := an.AnalyzeFile(ctx, df)
		return AnalysisDoneMsg{Analysis: analysis, Err: err}
	}

	// Non-blocking send so workers aren't stalled; the next update catches up.
	progressFn := func(current, total int) {
		select {
		case sub <- ProgressMsg{Current: current, Total: total}:
		default:
		}
	}
	res, err := an.ImportDir(ctx, path, tracker, false, progressFn)
	if err != nil {
		return AnalysisDoneMsg{Err: err}
	}
	msg := AnalysisDoneMsg{Imported: res.Analyzed, Unchanged: res.Unchanged}
	if len(res.Analyses) == 0 {
		switch {
		case len(res.FileErrors) > 0:
			msg.Err = fmt.Errorf("%s: %w", res.FileErrors[0].Path, res.FileErrors[0].Err)
		case res.TotalFiles == 0:
			msg.Err = fmt.Errorf("no bill files found in %s", path)
		default:
			msg.Err = fmt.Errorf("no new bills in %s (%d unchanged)", path, res.Unchanged)
		}
		return msg
	}
	msg.Analysis = res.Analyses[len(res.Analyses)-1]
	return msg
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func loadHistoryCmd(st Store) tea.Cmd {
	if st == nil {
		return nil
	}
	return func() tea.Msg {
		analyses, err := st.ListAnalyses(store.ListOptions{Limit: historyLimit})
		return HistoryLoadedMsg{Analyses: analyses, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

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
	return s + strings.Repeat("\n", h-len(lines))
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
// Hitboxes follow RenderTabBar: one leading space, then tabs separated by a gap.
func (a App) tabAtX(x int) int {
	pos := 1
	gap := components.TabGapWidth()
	for i := range components.Tabs {
		tabW := components.TabVisualWidth(i, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + gap
	}
	return -1
}
