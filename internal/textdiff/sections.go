package textdiff

import "regexp"

// sectionPattern matches a <div> carrying an id attribute up to the first
// closing </div>. Nested divs are not balanced: the inner closing tag ends the
// region, so improperly nested sections give partial text rather than an error.
var sectionPattern = regexp.MustCompile(`(?is)<div\s(?:[^>]*?\s)?id\s*=\s*"([^"]+)"[^>]*>(.*?)</div>`)

// Section is an id-tagged region of a markup document with normalised text.
type Section struct {
	ID   string
	Text string
}

// ExtractSections returns the id-tagged regions of markup in document order.
// When an id repeats, only its first region is kept. Markup without any
// recognisable region yields an empty slice.
func ExtractSections(markup string) []Section {
	matches := sectionPattern.FindAllStringSubmatch(markup, -1)
	sections := make([]Section, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sections = append(sections, Section{ID: id, Text: Normalize(match[2])})
	}
	return sections
}

// ChangedSections lists the ids of regions in newMarkup whose normalised text
// differs from the same id in oldMarkup, or that have no old counterpart.
// Regions that exist only in oldMarkup are not reported.
func ChangedSections(oldMarkup, newMarkup string) []string {
	previous := make(map[string]string)
	for _, section := range ExtractSections(oldMarkup) {
		previous[section.ID] = section.Text
	}

	changed := make([]string, 0)
	for _, section := range ExtractSections(newMarkup) {
		text, ok := previous[section.ID]
		if !ok || text != section.Text {
			changed = append(changed, section.ID)
		}
	}
	return changed
}
