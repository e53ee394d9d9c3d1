package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type ExportResult struct {
	VocabularyPath string
	WeightsPath    string
	VocabularySize int64
	WeightsSize    int64
}

// rename is swapped in tests to simulate failures.
var rename = os.Rename

type target struct {
	path string
	doc  any
}

// Export writes the vocabulary and weights documents into dir, creating it if
// needed and overwriting previous artifacts. Both files are staged first and
// swapped in together; when the swap fails the previous pair is restored, so
// dir never holds a vocabulary without its matching weights.
func Export(dir, vocabName, weightsName string, v Vocabulary, w Weights) (*ExportResult, error) {
	if err := Validate(v, w); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("model: create %s: %w", dir, err)
	}

	targets := []target{
		{filepath.Join(dir, vocabName), v},
		{filepath.Join(dir, weightsName), w},
	}

	staged := make([]string, 0, len(targets))
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}
	for _, t := range targets {
		tmp, err := writeTemp(dir, filepath.Base(t.path), t.doc)
		if err != nil {
			cleanup()
			return nil, err
		}
		staged = append(staged, tmp)
	}

	backups := make([]string, 0, len(targets))
	for _, t := range targets {
		bak := ""
		if _, err := os.Stat(t.path); err == nil {
			bak = t.path + ".bak"
			if err := rename(t.path, bak); err != nil {
				restore(targets, backups, 0)
				cleanup()
				return nil, fmt.Errorf("model: back up %s: %w", t.path, err)
			}
		}
		backups = append(backups, bak)
	}

	for i, t := range targets {
		if err := rename(staged[i], t.path); err != nil {
			restore(targets, backups, i)
			cleanup()
			return nil, fmt.Errorf("model: install %s: %w", t.path, err)
		}
	}
	for _, bak := range backups {
		if bak != "" {
			os.Remove(bak)
		}
	}

	res := &ExportResult{
		VocabularyPath: targets[0].path,
		WeightsPath:    targets[1].path,
	}
	var err error
	if res.VocabularySize, err = fileSize(res.VocabularyPath); err != nil {
		return nil, err
	}
	if res.WeightsSize, err = fileSize(res.WeightsPath); err != nil {
		return nil, err
	}
	return res, nil
}

// restore removes the first installed targets and moves the backups taken so
// far back into place.
func restore(targets []target, backups []string, installed int) {
	for i := 0; i < installed; i++ {
		os.Remove(targets[i].path)
	}
	for i, bak := range backups {
		if bak != "" {
			rename(bak, targets[i].path)
		}
	}
}

func writeTemp(dir, name string, doc any) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("model: stage %s: %w", name, err)
	}
	err = json.NewEncoder(f).Encode(doc)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(f.Name(), 0o644)
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("model: write %s: %w", name, err)
	}
	return f.Name(), nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("model: stat %s: %w", path, err)
	}
	return info.Size(), nil
}
