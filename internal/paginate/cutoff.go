package paginate

// NoCutoff is returned when no paragraph on the page straddles the
// viewport bottom. A sentinel keeps "nothing cut off" distinct from
// "paragraph 0 is cut off".
const NoCutoff = -1

// DefaultCutoffRatio is the truncated fraction beyond which a paragraph
// counts as cut off. Empirically chosen in the original; kept as is.
const DefaultCutoffRatio = 0.25

// Box is a paragraph's rendered vertical extent in viewport coordinates.
type Box struct {
	Top    float64
	Bottom float64
}

// BoxReader reads the rendered box of a page-relative paragraph. The
// second return is false while the element has not mounted yet.
type BoxReader interface {
	Box(relative int) (Box, bool)
}

// Cutoff scans page-relative boxes in order and returns the first
// paragraph whose box straddles viewportBottom with more than ratio of
// its own height truncated, or NoCutoff.
func Cutoff(boxes []Box, viewportBottom, ratio float64) int {
	for i, b := range boxes {
		h := b.Bottom - b.Top
		if h <= 0 {
			continue
		}
		if b.Top < viewportBottom && b.Bottom > viewportBottom {
			truncated := (b.Bottom - viewportBottom) / h
			if truncated > ratio {
				return i
			}
		}
	}
	return NoCutoff
}

// DetectCutoff reads boxes for a page of pageLen paragraphs through r,
// retrying for elements that have not mounted. Elements still missing
// after the retries are treated as not cut off, never as an error. The
// caller must only invoke this after the page transition has settled and
// the page has been measured; earlier reads see in-flight transforms.
func DetectCutoff(r BoxReader, pageLen int, viewportBottom, ratio float64, retry Retry) int {
	boxes := make([]Box, 0, pageLen)
	retry.Do(func() bool {
		boxes = boxes[:0]
		for i := 0; i < pageLen; i++ {
			b, ok := r.Box(i)
			if !ok {
				return false
			}
			boxes = append(boxes, b)
		}
		return true
	})
	return Cutoff(boxes, viewportBottom, ratio)
}

// AdvanceParagraph is the page-relative paragraph that advances to the
// next page when tapped: the cut-off paragraph if one exists, else the
// last paragraph on the page.
func AdvanceParagraph(cutoff, pageLen int) int {
	if cutoff != NoCutoff {
		return cutoff
	}
	if pageLen == 0 {
		return 0
	}
	return pageLen - 1
}
