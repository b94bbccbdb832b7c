package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GenerateExportPath creates a timestamped export filename inside dir
func GenerateExportPath(dir, ext string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	if ext == "" {
		ext = ".json"
	}
	return filepath.Join(dir, fmt.Sprintf("animation_%s%s", timestamp, ext))
}

// FindLatestDocument finds the most recently modified animation document in dir
func FindLatestDocument(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read animations directory: %w", err)
	}
	return latestDocument(dir, entries)
}

func latestDocument(dir string, entries []os.DirEntry) (string, error) {
	type candidate struct {
		path    string
		modTime time.Time
	}
	var docs []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		docs = append(docs, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	if len(docs) == 0 {
		return "", fmt.Errorf("no animation files found in %s", dir)
	}

	// newest first
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].modTime.After(docs[j].modTime)
	})

	return docs[0].path, nil
}
