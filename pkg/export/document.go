package export

import "fmt"

// Section is one titled table inside a document.
type Section struct {
	Heading string
	Headers []string
	Rows    [][]string
}

// Document groups the sections rendered into a single export file.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// Validate ensures every section has headers and rows matching their width.
func (d Document) Validate() error {
	if len(d.Sections) == 0 {
		return fmt.Errorf("document has no sections")
	}
	for i, section := range d.Sections {
		if len(section.Headers) == 0 {
			return fmt.Errorf("section %d requires at least one header", i)
		}
		for j, row := range section.Rows {
			if len(row) != len(section.Headers) {
				return fmt.Errorf("section %d row %d has %d cells, want %d", i, j, len(row), len(section.Headers))
			}
		}
	}
	return nil
}
