package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
)

// Export writes the current (edited) source of every successful variant to
// dir as <index>-<slug>.html and returns the written paths.
func Export(fs afero.Fs, dir string, states []VariantState) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var written []string
	for _, st := range states {
		if !st.Succeeded() {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%d-%s.html", st.Index, slug(st.Title)))
		if err := afero.WriteFile(fs, path, []byte(st.EditedCode), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func slug(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "variant"
	}
	return strings.Join(words, "-")
}
