package io

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/schemaplot/pkg/errors"
)

// DataDir is the folder under the base directory that holds datasets.
const DataDir = "0-data"

// Key file names, current and legacy.
const (
	PrimaryKeysFile       = "keys-primary.csv"
	ForeignKeysFile       = "keys-foreign.csv"
	LegacyPrimaryKeysFile = "primary_keys.csv"
	LegacyForeignKeysFile = "foreign_keys.csv"
)

// OutputSuffix is appended to a dataset name to form its diagram file name.
const OutputSuffix = "-schema.xml"

// Dataset is a folder holding a pair of key files.
type Dataset struct {
	Name    string
	Dir     string
	Primary string
	Foreign string
}

// Source returns a CSV source reading the dataset's key files.
func (d Dataset) Source() CSVSource {
	return CSVSource{PrimaryPath: d.Primary, ForeignPath: d.Foreign}
}

// OutputPath returns the diagram path next to the dataset folder.
func (d Dataset) OutputPath() string {
	return filepath.Join(filepath.Dir(d.Dir), d.Name+OutputSuffix)
}

// OutputPathExt returns the output path for a format other than XML, for
// example ".json" or ".svg".
func (d Dataset) OutputPathExt(ext string) string {
	return filepath.Join(filepath.Dir(d.Dir), d.Name+"-schema"+ext)
}

// DatasetAt inspects dir and returns it as a dataset when both key files are
// present, preferring the current file names over the legacy ones.
func DatasetAt(dir string) (Dataset, bool) {
	d := Dataset{Name: filepath.Base(dir), Dir: dir}
	pairs := [][2]string{
		{PrimaryKeysFile, ForeignKeysFile},
		{LegacyPrimaryKeysFile, LegacyForeignKeysFile},
	}
	for _, p := range pairs {
		pk, fk := filepath.Join(dir, p[0]), filepath.Join(dir, p[1])
		if isFile(pk) && isFile(fk) {
			d.Primary, d.Foreign = pk, fk
			return d, true
		}
	}
	return d, false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FindDatasets lists the datasets under baseDir/0-data sorted by name,
// ignoring case. Folders without both key files are skipped.
func FindDatasets(baseDir string) ([]Dataset, error) {
	root := filepath.Join(baseDir, DataDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "data folder %s", root)
		}
		return nil, err
	}

	var out []Dataset
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if d, ok := DatasetAt(filepath.Join(root, e.Name())); ok {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b Dataset) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// FindDataset returns the dataset called name under baseDir.
func FindDataset(baseDir, name string) (Dataset, error) {
	if err := errors.ValidateDatasetName(name); err != nil {
		return Dataset{}, err
	}
	d, ok := DatasetAt(filepath.Join(baseDir, DataDir, name))
	if !ok {
		return Dataset{}, errors.New(errors.ErrCodeDatasetNotFound, "dataset %q not found in %s", name, filepath.Join(baseDir, DataDir))
	}
	return d, nil
}
