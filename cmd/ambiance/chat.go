package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ambiance/internal/catalog"
	"ambiance/internal/ledger"
	"ambiance/internal/logging"
	"ambiance/internal/playback"
	"ambiance/internal/resolver"
	"ambiance/internal/session"
	"ambiance/internal/theme"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive storytelling client",
	Long: `Starts the interactive client: type a passage, the resolver picks a
matching ambient sound and UI theme, the sound crossfades in and the
scene header repaints. The conversation carries across turns, so later
messages are interpreted in context.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res, err := buildResolver(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	engine := playback.NewEngine(
		newConsoleElement("A"),
		newConsoleElement("B"),
		playback.Config{
			FadeDuration: cfg.Playback.FadeDurationValue(),
			FadeSteps:    cfg.Playback.FadeSteps,
		},
	)
	defer engine.Close()

	m := newChatModel(res.resolver, res.catalog, engine, theme.NewApplicator(res.catalog))
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// consoleElement satisfies the playback element contract for a terminal
// client: it tracks state and logs transitions instead of emitting audio.
type consoleElement struct {
	name   string
	source string
	volume float64
	loop   bool
}

func newConsoleElement(name string) *consoleElement {
	return &consoleElement{name: name}
}

func (e *consoleElement) SetSource(ref string) { e.source = ref }
func (e *consoleElement) SetLoop(loop bool)    { e.loop = loop }
func (e *consoleElement) SetVolume(v float64)  { e.volume = v }

func (e *consoleElement) Play(context.Context) error {
	logging.Playback("slot %s playing %s", e.name, e.source)
	return nil
}

func (e *consoleElement) Pause() {
	logging.PlaybackDebug("slot %s paused", e.name)
}

func (e *consoleElement) Ended() bool { return false }
func (e *consoleElement) Close() error {
	return nil
}

// chatStyles groups the lipgloss styles of the chat view.
type chatStyles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	model     lipgloss.Style
	status    lipgloss.Style
	errorText lipgloss.Style
	prompt    lipgloss.Style
}

func defaultChatStyles() chatStyles {
	return chatStyles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		model:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
}

type chatModel struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    chatStyles

	resolver *resolver.Resolver
	catalog  *catalog.Store
	engine   *playback.Engine
	themes   *theme.Applicator
	sess     *session.Session

	isLoading bool
	err       error
	width     int
	height    int
	ready     bool
}

type (
	outcomeMsg struct {
		txn *session.Txn
		out *resolver.Outcome
	}
	resolveErrMsg struct {
		txn *session.Txn
		err error
	}
)

func newChatModel(res *resolver.Resolver, cat *catalog.Store, engine *playback.Engine, themes *theme.Applicator) chatModel {
	styles := defaultChatStyles()

	ti := textinput.New()
	ti.Placeholder = "Describe a scene... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.prompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.status

	vp := viewport.New(80, 20)
	vp.SetContent("")

	return chatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		styles:    styles,
		resolver:  res,
		catalog:   cat,
		engine:    engine,
		themes:    themes,
		sess:      session.New(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 6
		m.textinput.Width = msg.Width - 4
		m.ready = true
		m.refreshViewport()

	case outcomeMsg:
		m.isLoading = false
		if msg.txn.Commit(msg.out.Ledger) {
			m.applyOutcome(msg.out)
		}
		m.refreshViewport()

	case resolveErrMsg:
		m.isLoading = false
		m.err = msg.err
		msg.txn.Rollback()
		m.refreshViewport()

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textinput, tiCmd = m.textinput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textinput.Value())
	if text == "" {
		return m, nil
	}
	m.textinput.Reset()
	m.err = nil
	m.isLoading = true

	txn, submitted := m.sess.Begin(ledger.NewUserText(text))
	m.refreshViewport()

	res := m.resolver
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := res.Resolve(context.Background(), submitted)
		if err != nil {
			return resolveErrMsg{txn: txn, err: err}
		}
		return outcomeMsg{txn: txn, out: out}
	})
}

// applyOutcome drives playback and theming from a committed resolution.
func (m *chatModel) applyOutcome(out *resolver.Outcome) {
	m.themes.Apply(out.ThemeID)
	if out.SoundID == nil {
		return
	}
	entry, ok := m.catalog.Snapshot().Sound(*out.SoundID)
	if !ok {
		return
	}
	if err := m.engine.Play(context.Background(), entry.PlayableRef); err != nil {
		m.err = err
	}
}

func (m *chatModel) refreshViewport() {
	var b strings.Builder
	for _, turn := range m.sess.Ledger() {
		switch turn.Role {
		case ledger.RoleUser:
			b.WriteString(m.styles.user.Render("you: " + turn.Text()))
		case ledger.RoleModel:
			b.WriteString(m.styles.model.Render(describeModelTurn(turn)))
		default:
			continue
		}
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// describeModelTurn renders a model turn for the history pane. Tool-call
// turns are summarized; raw JSON replies are shown as-is.
func describeModelTurn(turn ledger.Turn) string {
	var calls []string
	for _, p := range turn.Parts {
		if p.ToolCall != nil {
			calls = append(calls, fmt.Sprintf("%s(%s)", p.ToolCall.Name, p.ToolCall.ArgsJSON))
		}
	}
	if len(calls) > 0 {
		return "scene: " + strings.Join(calls, " ")
	}
	return "scene: " + turn.Text()
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := "ambiance"
	if id, entry, ok := m.themes.Active(); ok {
		header = fmt.Sprintf("ambiance | theme: %s (%s)", entry.Label, id)
	}
	lines := []string{m.styles.header.Render(header)}

	lines = append(lines, m.viewport.View())

	if playing := m.engine.Playing(); playing != "" {
		lines = append(lines, m.styles.status.Render("♪ "+playing))
	}
	if m.isLoading {
		lines = append(lines, m.styles.status.Render(m.spinner.View()+" resolving scene..."))
	}
	if m.err != nil {
		lines = append(lines, m.styles.errorText.Render("error: "+m.err.Error()))
	}
	lines = append(lines, m.textinput.View())

	return strings.Join(lines, "\n")
}
