// Interactive chat interface using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"askbot/internal/bot"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type chatLine struct {
	fromUser bool
	text     string
}

type answerMsg struct {
	text string
}

type chatModel struct {
	bot      *bot.Bot
	ctx      context.Context
	renderer *glamour.TermRenderer

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	lines   []chatLine
	waiting bool
	ready   bool
}

func newChatModel(ctx context.Context, b *bot.Bot) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask about hackathon judging..."
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	return chatModel{
		bot:      b,
		ctx:      ctx,
		renderer: renderer,
		input:    input,
		spin:     spin,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.Reset()
			m.lines = append(m.lines, chatLine{fromUser: true, text: question})
			m.waiting = true
			m.refresh()
			return m, tea.Batch(m.spin.Tick, m.ask(question))
		}

	case answerMsg:
		m.waiting = false
		m.lines = append(m.lines, chatLine{text: msg.text})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	status := statusStyle.Render("enter to send, esc to quit")
	if m.waiting {
		status = m.spin.View() + statusStyle.Render(" thinking...")
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.input.View(), status)
}

// ask runs one turn on a background goroutine.
func (m chatModel) ask(question string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{text: m.bot.HandleMessage(m.ctx, "local", question)}
	}
}

func (m *chatModel) refresh() {
	var b strings.Builder
	for _, line := range m.lines {
		if line.fromUser {
			b.WriteString(userStyle.Render("You: ") + line.text + "\n\n")
			continue
		}
		rendered := line.text
		if m.renderer != nil {
			if out, err := m.renderer.Render(line.text); err == nil {
				rendered = strings.TrimSpace(out)
			}
		}
		b.WriteString(botStyle.Render("askbot:") + "\n" + rendered + "\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func runChat() error {
	ctx := context.Background()
	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	program := tea.NewProgram(newChatModel(ctx, p.bot), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
