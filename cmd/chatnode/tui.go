package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lanchat/node"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1)

	messagePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	serverMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Italic(true)
	clientMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	peerMsgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
)

// chatLine is one rendered row: a server notice, a node-local status line,
// or a peer's message.
type chatLine struct {
	sender string
	text   string
	at     time.Time
}

type chatLineMsg chatLine

// model is the bubbletea model driving the terminal UI. Node events arrive
// on an arbitrary goroutine via OnMessageSaid, so they're funneled through
// incoming and re-emitted as tea.Msg values the way the teacher's TUI reads
// from its own node event channel.
type model struct {
	n        *node.Node
	incoming chan chatLine

	lines    []chatLine
	viewport viewport.Model
	textarea textarea.Model

	ready  bool
	width  int
	height int
}

func newModel(n *node.Node) *model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or /name <newname>, or /quit"
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	incoming := make(chan chatLine, 64)
	n.OnMessageSaid(func(name, msg string) {
		incoming <- chatLine{sender: name, text: msg, at: time.Now()}
	})

	return &model{n: n, incoming: incoming, viewport: vp, textarea: ta}
}

func (m *model) Init() tea.Cmd {
	m.n.Start()
	return tea.Batch(textarea.Blink, m.waitForMessage())
}

func (m *model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		return chatLineMsg(<-m.incoming)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.n.Close()
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if input == "/quit" {
				m.n.Close()
				return m, tea.Quit
			}
			if strings.HasPrefix(input, "/name ") {
				if err := m.n.SetName(strings.TrimPrefix(input, "/name ")); err != nil {
					m.appendLocal(err.Error())
				}
				return m, nil
			}
			if err := m.n.Say(input); err != nil {
				m.appendLocal(err.Error())
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.viewport.Width = m.width - 2
		m.viewport.Height = m.height - 7
		m.textarea.SetWidth(m.width - 4)
		m.renderViewport()

	case chatLineMsg:
		m.lines = append(m.lines, chatLine(msg))
		m.renderViewport()
		m.viewport.GotoBottom()
		return m, m.waitForMessage()
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *model) appendLocal(text string) {
	m.lines = append(m.lines, chatLine{sender: "CLIENT", text: text, at: time.Now()})
	m.renderViewport()
}

func (m *model) renderViewport() {
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(renderLine(l))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func renderLine(l chatLine) string {
	ts := timestampStyle.Render(l.at.Format("15:04:05"))
	switch l.sender {
	case "SERVER":
		return fmt.Sprintf("%s %s", ts, serverMsgStyle.Render(l.text))
	case "CLIENT":
		return fmt.Sprintf("%s %s", ts, clientMsgStyle.Render(l.text))
	default:
		return fmt.Sprintf("%s %s %s", ts, peerMsgStyle.Render("["+l.sender+"]"), l.text)
	}
}

func (m *model) View() string {
	if !m.ready {
		return "\nStarting lanchat...\n"
	}
	header := headerStyle.Render("lanchat")
	panel := messagePanelStyle.Width(m.width - 2).Height(m.viewport.Height + 2).Render(m.viewport.View())
	status := statusBarStyle.Render(fmt.Sprintf("name: %s", displayName(m.n)))
	input := inputStyle.Width(m.width - 4).Render(m.textarea.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, panel, status, input)
}

func displayName(n *node.Node) string {
	if name := n.Name(); name != "" {
		return name
	}
	return "(unset)"
}

func runTUI(n *node.Node) {
	p := tea.NewProgram(newModel(n), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui: %v", err)
	}
}
