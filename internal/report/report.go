// Package report renders an answer with its cited sources as markdown and
// stores it next to other answers.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"nano-perplexity/internal/citation"
)

const maxFileNameBytes = 200

// Render renumbers citations and lays the answer out as markdown. The
// sources section is present only when the answer cites something.
func Render(query, answer string, sources []string) string {
	answer, mappings := citation.Renumber(answer)
	if len(mappings) == 0 {
		return fmt.Sprintf("# %s\n\n## Answer\n%s", query, answer)
	}
	links := citation.Links(mappings, sources)
	return fmt.Sprintf("# %s\n\n## Sources\n%s\n\n## Answer\n%s", query, links, answer)
}

// Save writes content to "<dir>/<query>.md" and returns the path.
func Save(dir, query, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(query))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// FileName maps a query to a file name that is safe on common filesystems.
func FileName(query string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(query))

	for len(name) > maxFileNameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	name = strings.TrimRight(name, ". ")
	if name == "" {
		name = "answer"
	}
	return name + ".md"
}

