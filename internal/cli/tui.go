package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(inkAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(inkBright)
	listDimStyle      = lipgloss.NewStyle().Foreground(inkFaint)
)

// =============================================================================
// LayerOrderModel - Interactive layer priority selection
// =============================================================================

// LayerOrderModel is the bubbletea model for picking the layer priority
// order. Toggling a layer appends it to the order or removes it; the order
// is exactly the sequence in which layers were toggled on.
type LayerOrderModel struct {
	Layers    []string       // discovered layer directories
	Variants  map[string]int // files per layer
	Order     []string       // chosen priority order
	Cursor    int
	Confirmed bool
	Height    int
	Offset    int
}

// NewLayerOrderModel creates a model over layers with preset already ordered.
// Preset names that are not among layers are dropped.
func NewLayerOrderModel(layers []string, variants map[string]int, preset []string) LayerOrderModel {
	m := LayerOrderModel{Layers: layers, Variants: variants, Height: 15}
	for _, name := range preset {
		if slices.Contains(layers, name) && !slices.Contains(m.Order, name) {
			m.Order = append(m.Order, name)
		}
	}
	return m
}

func (m LayerOrderModel) Init() tea.Cmd {
	return nil
}

func (m LayerOrderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Layers)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			m.toggle(m.Layers[m.Cursor])
		case "a":
			for _, name := range m.Layers {
				if !slices.Contains(m.Order, name) {
					m.Order = append(m.Order, name)
				}
			}
		case "backspace":
			if len(m.Order) > 0 {
				m.Order = m.Order[:len(m.Order)-1]
			}
		case "enter":
			if len(m.Order) == 0 {
				return m, nil
			}
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

// toggle appends name to the order or removes it.
func (m *LayerOrderModel) toggle(name string) {
	if i := slices.Index(m.Order, name); i >= 0 {
		m.Order = slices.Delete(slices.Clone(m.Order), i, i+1)
		return
	}
	m.Order = append(slices.Clone(m.Order), name)
}

// Combinations returns the number of combinations of the current order.
func (m LayerOrderModel) Combinations() uint64 {
	if len(m.Order) == 0 {
		return 0
	}
	total := uint64(1)
	for _, name := range m.Order {
		total *= uint64(m.Variants[name] + 1)
	}
	return total
}

func (m LayerOrderModel) View() string {
	var b strings.Builder

	b.WriteString(styleHeading.Render("Select Layer Order"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⌫ undo  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Layers))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		name := m.Layers[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		pos := "—"
		if p := slices.Index(m.Order, name); p >= 0 {
			pos = strconv.Itoa(p + 1)
		}
		rows = append(rows, []string{cursor, pos, name, strconv.Itoa(m.Variants[name])})
	}

	t := newTable("", "Order", "Layer", "Files").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Layers) {
				return lipgloss.NewStyle()
			}
			chosen := slices.Contains(m.Order, m.Layers[idx])
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case chosen:
				return listNormalStyle.Foreground(inkGood)
			default:
				return listDimStyle
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(m.Order) == 0 {
		b.WriteString(listDimStyle.Render("  no layers chosen"))
	} else {
		b.WriteString(listNormalStyle.Render("  " + strings.Join(m.Order, " → ")))
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  (%d combinations)", m.Combinations())))
	}
	return b.String()
}

// pickLayerOrder runs the layer picker over the layer directories in root.
func pickLayerOrder(ctx context.Context, root string, preset []string) ([]string, error) {
	names, err := traits.DiscoverLayerNames(root)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "no layer directories found in %s", root)
	}
	variants := make(map[string]int, len(names))
	for _, name := range names {
		files, err := traits.ListFiles(filepath.Join(root, name))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "list layer %q", name)
		}
		variants[name] = len(files)
	}

	p := tea.NewProgram(NewLayerOrderModel(names, variants, preset), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "layer picker")
	}
	m := final.(LayerOrderModel)
	if !m.Confirmed {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layer selection cancelled")
	}
	return m.Order, nil
}
