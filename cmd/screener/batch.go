package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/services"
)

// batchFlag is one --batch value: "role=teaching,unit=Engineering,label=A:./dir".
type batchFlag struct {
	Role  models.Role
	Unit  string
	Label string
	Path  string
}

func parseBatchFlag(v string) (batchFlag, error) {
	opts, path, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(path) == "" {
		return batchFlag{}, fmt.Errorf("batch %q: expected OPTIONS:PATH", v)
	}

	b := batchFlag{Path: strings.TrimSpace(path)}
	for _, kv := range strings.Split(opts, ",") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return batchFlag{}, fmt.Errorf("batch %q: option %q is not key=value", v, kv)
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "role":
			role, ok := models.ParseRole(val)
			if !ok {
				return batchFlag{}, fmt.Errorf("batch %q: unknown role %q", v, val)
			}
			b.Role = role
		case "unit":
			b.Unit = val
		case "label":
			b.Label = val
		default:
			return batchFlag{}, fmt.Errorf("batch %q: unknown option %q", v, key)
		}
	}
	if b.Role == "" {
		return batchFlag{}, fmt.Errorf("batch %q: role is required", v)
	}
	if b.Unit == "" {
		return batchFlag{}, fmt.Errorf("batch %q: unit is required", v)
	}
	return b, nil
}

// loadDocuments reads a single CV or every .pdf and .docx directly inside a
// directory, sorted by name.
func loadDocuments(path string) ([]models.UploadedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".pdf", ".docx":
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	docs := make([]models.UploadedDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, models.UploadedDocument{
			Filename: filepath.Base(p),
			Content:  content,
		})
	}
	return docs, nil
}

func (b batchFlag) config() (services.BatchConfig, error) {
	docs, err := loadDocuments(b.Path)
	if err != nil {
		return services.BatchConfig{}, err
	}
	if len(docs) == 0 {
		return services.BatchConfig{}, fmt.Errorf("no .pdf or .docx files found in %s", b.Path)
	}
	return services.BatchConfig{Label: b.Label, Role: b.Role, Unit: b.Unit, Files: docs}, nil
}
