package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	schemaio "github.com/matzehuels/schemaplot/pkg/io"
)

func testDatasets() []schemaio.Dataset {
	return []schemaio.Dataset{
		{Name: "billing", Dir: "0-data/billing", Primary: "0-data/billing/keys-primary.csv"},
		{Name: "crm", Dir: "0-data/crm", Primary: "0-data/crm/primary_keys.csv"},
		{Name: "shop", Dir: "0-data/shop", Primary: "0-data/shop/keys-primary.csv"},
	}
}

func press(m tea.Model, keys ...tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(k)
	}
	return m, cmd
}

func TestDatasetListNavigation(t *testing.T) {
	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	m, _ := press(NewDatasetListModel(testDatasets()), down, down, down, up)
	got := m.(DatasetListModel)
	if got.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1", got.Cursor)
	}

	m, cmd := press(got, tea.KeyMsg{Type: tea.KeyEnter})
	got = m.(DatasetListModel)
	if got.Selected == nil || got.Selected.Name != "crm" {
		t.Fatalf("Selected = %+v, want crm", got.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
}

func TestDatasetListQuit(t *testing.T) {
	m, cmd := press(NewDatasetListModel(testDatasets()), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.(DatasetListModel).Selected != nil {
		t.Error("quit should not select")
	}
	if cmd == nil {
		t.Error("q should quit the program")
	}
}

func TestDatasetListScrolls(t *testing.T) {
	m := NewDatasetListModel(testDatasets())
	m.Height = 2
	next, _ := press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	got := next.(DatasetListModel)
	if got.Offset != 1 {
		t.Errorf("Offset = %d, want 1", got.Offset)
	}
	view := got.View()
	if strings.Contains(view, "billing") || !strings.Contains(view, "shop") {
		t.Errorf("view shows wrong window:\n%s", view)
	}
	if !strings.Contains(view, "[3/3]") {
		t.Error("view missing position indicator")
	}
}

func TestKeyFileKind(t *testing.T) {
	ds := testDatasets()
	if keyFileKind(ds[0]) != "current" || keyFileKind(ds[1]) != "legacy" {
		t.Error("key file kind mismatch")
	}
}
