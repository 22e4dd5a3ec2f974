package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/postflop/internal/deck"
	"github.com/lox/postflop/internal/game"
)

// BrowseCmd solves a spot and opens an interactive cursor over the solved
// tree: play actions, deal cards, inspect strategies and walk back.
type BrowseCmd struct {
	Config string `arg:"" help:"path to the HCL run file"`
}

func (cmd *BrowseCmd) Run(ctx context.Context, logger *log.Logger) error {
	g, _, err := buildAndSolve(ctx, cmd.Config, logger)
	if err != nil {
		return err
	}

	model := newBrowseModel(g)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

type browseKeymap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Root   key.Binding
	Quit   key.Binding
}

func defaultBrowseKeymap() browseKeymap {
	return browseKeymap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		Back:   key.NewBinding(key.WithKeys("backspace", "u"), key.WithHelp("u", "undo")),
		Root:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "root")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type browseModel struct {
	game    *game.PostFlopGame
	keys    browseKeymap
	cursor  int
	err     error
	noColor bool
}

func newBrowseModel(g *game.PostFlopGame) *browseModel {
	return &browseModel{
		game:    g,
		keys:    defaultBrowseKeymap(),
		noColor: termenv.ColorProfile() == termenv.Ascii,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.choices())-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Select):
		choices := m.choices()
		if len(choices) == 0 {
			break
		}
		m.err = m.game.Play(choices[m.cursor].play)
		m.cursor = 0

	case key.Matches(keyMsg, m.keys.Back):
		history := m.game.History()
		if len(history) > 0 {
			m.err = m.game.ApplyHistory(history[:len(history)-1])
			m.cursor = 0
		}

	case key.Matches(keyMsg, m.keys.Root):
		m.game.BackToRoot()
		m.cursor = 0
		m.err = nil
	}
	return m, nil
}

type browseChoice struct {
	label string
	play  int
}

// choices lists the playable edges at the cursor: actions at decision
// nodes, dealable cards at chance nodes.
func (m *browseModel) choices() []browseChoice {
	if m.game.IsTerminalNode() {
		return nil
	}
	if m.game.IsChanceNode() {
		possible := m.game.PossibleCards()
		var out []browseChoice
		for c := 0; c < deck.NumCards; c++ {
			if possible&(1<<uint(c)) != 0 {
				out = append(out, browseChoice{label: deck.Card(c).String(), play: c})
			}
		}
		return out
	}
	var out []browseChoice
	for i, action := range m.game.AvailableActions() {
		out = append(out, browseChoice{label: action.String(), play: i})
	}
	return out
}

func (m *browseModel) View() string {
	var b strings.Builder

	style := func(s lipgloss.Style, text string) string {
		if m.noColor {
			return text
		}
		return s.Render(text)
	}

	board := m.game.Board()
	boardStr := make([]string, len(board))
	for i, c := range board {
		boardStr[i] = c.String()
	}
	b.WriteString(style(titleStyle, fmt.Sprintf("Board %s   Pot %d", strings.Join(boardStr, " "), m.game.Pot())))
	b.WriteByte('\n')

	switch {
	case m.game.IsTerminalNode():
		b.WriteString(style(headerStyle, "Terminal node") + "\n")
	case m.game.IsChanceNode():
		b.WriteString(style(headerStyle, "Chance node: choose the dealt card") + "\n")
	default:
		player, _ := m.game.CurrentPlayer()
		name := "OOP"
		if player == 1 {
			name = "IP"
		}
		b.WriteString(style(headerStyle, fmt.Sprintf("%s to act", name)) + "\n")
		b.WriteString(m.frequencyLines(style))
	}
	b.WriteByte('\n')

	for i, choice := range m.choices() {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		line := prefix + choice.label
		if i == m.cursor {
			line = style(valueStyle, line)
		}
		b.WriteString(line + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + style(dimStyle, m.err.Error()) + "\n")
	}
	b.WriteString("\n" + style(dimStyle, "enter play · u undo · r root · q quit") + "\n")
	return b.String()
}

// frequencyLines shows the range-weighted frequency of each action.
func (m *browseModel) frequencyLines(style func(lipgloss.Style, string) string) string {
	strategy, err := m.game.Strategy()
	if err != nil {
		return ""
	}
	player, _ := m.game.CurrentPlayer()
	m.game.CacheNormalizedWeights()
	weights, err := m.game.NormalizedWeights(player)
	if err != nil {
		return ""
	}

	actions := m.game.AvailableActions()
	numHands := len(m.game.PrivateCards(player))
	var b strings.Builder
	for a, action := range actions {
		var freq float64
		for h := 0; h < numHands; h++ {
			freq += float64(weights[h]) * float64(strategy[a*numHands+h])
		}
		b.WriteString(style(dimStyle, fmt.Sprintf("  %-12s %5.1f%%", action.String(), 100*freq)))
		b.WriteByte('\n')
	}
	return b.String()
}
