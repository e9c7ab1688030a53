package io

import (
	"path/filepath"
	"testing"

	"github.com/matzehuels/schemaplot/pkg/errors"
)

const (
	pkHeader = "TableName,ColumnName,KeyOrder\n"
	fkHeader = "ParentTable,ParentColumn,ReferencedTable,ReferencedColumn\n"
)

func TestFindDatasets(t *testing.T) {
	base := t.TempDir()
	data := filepath.Join(base, DataDir)

	writeFile(t, filepath.Join(data, "zoo", PrimaryKeysFile), pkHeader)
	writeFile(t, filepath.Join(data, "zoo", ForeignKeysFile), fkHeader)
	writeFile(t, filepath.Join(data, "Alpha", LegacyPrimaryKeysFile), pkHeader)
	writeFile(t, filepath.Join(data, "Alpha", LegacyForeignKeysFile), fkHeader)
	writeFile(t, filepath.Join(data, "beta", PrimaryKeysFile), pkHeader)
	writeFile(t, filepath.Join(data, "beta", ForeignKeysFile), fkHeader)
	// incomplete: only a primary-key file
	writeFile(t, filepath.Join(data, "half", PrimaryKeysFile), pkHeader)
	writeFile(t, filepath.Join(data, "loose.csv"), pkHeader)

	got, err := FindDatasets(base)
	if err != nil {
		t.Fatalf("FindDatasets: %v", err)
	}
	var names []string
	for _, d := range got {
		names = append(names, d.Name)
	}
	want := []string{"Alpha", "beta", "zoo"}
	if len(names) != len(want) {
		t.Fatalf("datasets = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("datasets = %v, want %v", names, want)
		}
	}

	alpha := got[0]
	if filepath.Base(alpha.Primary) != LegacyPrimaryKeysFile {
		t.Errorf("Alpha primary = %s, want legacy file", alpha.Primary)
	}
	if want := filepath.Join(data, "Alpha-schema.xml"); alpha.OutputPath() != want {
		t.Errorf("OutputPath() = %s, want %s", alpha.OutputPath(), want)
	}
	if want := filepath.Join(data, "Alpha-schema.json"); alpha.OutputPathExt(".json") != want {
		t.Errorf("OutputPathExt() = %s, want %s", alpha.OutputPathExt(".json"), want)
	}
}

func TestDatasetPrefersCurrentNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	for _, name := range []string{PrimaryKeysFile, ForeignKeysFile, LegacyPrimaryKeysFile, LegacyForeignKeysFile} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	d, ok := DatasetAt(dir)
	if !ok {
		t.Fatal("DatasetAt should accept the folder")
	}
	if filepath.Base(d.Primary) != PrimaryKeysFile || filepath.Base(d.Foreign) != ForeignKeysFile {
		t.Errorf("files = %s, %s", d.Primary, d.Foreign)
	}
}

func TestFindDatasetErrors(t *testing.T) {
	base := t.TempDir()
	if _, err := FindDatasets(base); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing data folder err = %v, want NOT_FOUND", err)
	}
	if _, err := FindDataset(base, "../etc"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("traversal err = %v, want INVALID_INPUT", err)
	}
	if _, err := FindDataset(base, "missing"); !errors.Is(err, errors.ErrCodeDatasetNotFound) {
		t.Errorf("unknown dataset err = %v, want DATASET_NOT_FOUND", err)
	}
}
