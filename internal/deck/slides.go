package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Slide is one sidebar entry pointing at a page of the deck.
type Slide struct {
	Page  int    `yaml:"page" json:"page"`
	Title string `yaml:"title" json:"title"`
}

// LoadSlides reads the ordered slide metadata list consumed by the sidebar.
// The file is read once at startup and never mutated at runtime. Pages must
// be unique and within [1, totalPages]. A missing file is not an error: the
// sidebar simply has nothing to show.
func LoadSlides(path string, totalPages int) ([]Slide, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading slides %s: %w", path, err)
	}

	var slides []Slide
	if err := yaml.Unmarshal(raw, &slides); err != nil {
		return nil, fmt.Errorf("parsing slides %s: %w", path, err)
	}

	seen := make(map[int]bool, len(slides))
	for i, sl := range slides {
		if sl.Page < 1 || sl.Page > totalPages {
			return nil, fmt.Errorf("slide %d: page %d out of range [1, %d]", i+1, sl.Page, totalPages)
		}
		if seen[sl.Page] {
			return nil, fmt.Errorf("slide %d: duplicate page %d", i+1, sl.Page)
		}
		seen[sl.Page] = true
	}
	return slides, nil
}
