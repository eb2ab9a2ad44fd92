package paginate

// DefaultParagraphsPerPage assumes an average paragraph height when no
// measurements are available at all.
const DefaultParagraphsPerPage = 4

// Static groups a fixed count of paragraphs per page. It is the fallback
// strategy for environments that cannot measure rendered heights.
func Static(paragraphs []string, perPage int) []PageRange {
	if len(paragraphs) == 0 {
		return nil
	}
	if perPage < 1 {
		perPage = DefaultParagraphsPerPage
	}
	var pages []PageRange
	for start := 0; start < len(paragraphs); start += perPage {
		end := start + perPage
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		pages = append(pages, PageRange{Start: start, End: end})
	}
	return pages
}
