package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	schemaio "github.com/matzehuels/schemaplot/pkg/io"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// DatasetListModel is the bubbletea model for picking a dataset.
type DatasetListModel struct {
	Datasets []schemaio.Dataset
	Cursor   int
	Selected *schemaio.Dataset
	Height   int
	Offset   int
}

// NewDatasetListModel returns a picker over datasets.
func NewDatasetListModel(datasets []schemaio.Dataset) DatasetListModel {
	return DatasetListModel{Datasets: datasets, Height: 15}
}

func (m DatasetListModel) Init() tea.Cmd {
	return nil
}

func (m DatasetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Datasets)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Datasets) == 0 {
				return m, tea.Quit
			}
			ds := m.Datasets[m.Cursor]
			m.Selected = &ds
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m DatasetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Dataset"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Datasets))
	var rows [][]string
	for i := m.Offset; i < end; i++ {
		ds := m.Datasets[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, ds.Name, keyFileKind(ds), ds.OutputPath()})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Dataset", "Key files", "Output").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 2 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Datasets))))
	return b.String()
}

// keyFileKind reports whether a dataset uses the current or legacy key
// file names.
func keyFileKind(ds schemaio.Dataset) string {
	if strings.HasSuffix(ds.Primary, schemaio.LegacyPrimaryKeysFile) {
		return "legacy"
	}
	return "current"
}

// pickDataset runs the picker and returns the chosen dataset, or false when
// the user quit without choosing.
func pickDataset(datasets []schemaio.Dataset) (schemaio.Dataset, bool, error) {
	final, err := tea.NewProgram(NewDatasetListModel(datasets)).Run()
	if err != nil {
		return schemaio.Dataset{}, false, err
	}
	m, ok := final.(DatasetListModel)
	if !ok || m.Selected == nil {
		return schemaio.Dataset{}, false, nil
	}
	return *m.Selected, true, nil
}
