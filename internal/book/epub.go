package book

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// ExtractBook reads an EPUB into chapters of plain-text paragraphs.
// Spine items with no extractable text are skipped; chapter titles come
// from the NCX navigation map where available.
func (f *EPUBFormat) ExtractBook(filename string) (*Book, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles", ErrMalformed)
	}
	rootfile := rc.Rootfiles[0]

	titles := ncxTitleMap(filename, rootfile)
	meta := opfMetadata(filename)

	var chapters []Chapter
	for i, ref := range rootfile.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		content := paragraphsFromHTML(string(data))
		if content == "" {
			continue
		}

		title := fmt.Sprintf("Section %d", i+1)
		if ref.Item.HREF != "" {
			if t, ok := titles[ref.Item.HREF]; ok {
				title = t
			} else if t, ok := titles[path.Base(ref.Item.HREF)]; ok {
				title = t
			}
		}

		chapters = append(chapters, Chapter{
			ID:      fmt.Sprintf("chapter-%03d", len(chapters)),
			Title:   title,
			Content: content,
			Index:   len(chapters),
		})
	}

	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}

	title := meta.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(filename), ".epub")
	}
	return &Book{Title: title, Author: meta.Creator, Chapters: chapters}, nil
}

// blockTags are the elements whose boundaries become paragraph breaks.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "section": true, "article": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// paragraphsFromHTML extracts text with block-level structure preserved
// as blank-line paragraph boundaries.
func paragraphsFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var paragraphs []string
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			paragraphs = append(paragraphs, t)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			flush()
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if cur.Len() > 0 {
					cur.WriteString(" ")
				}
				cur.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(paragraphs, "\n\n")
}

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	Label    navLabel   `xml:"navLabel"`
	Content  navContent `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// ncxTitleMap parses the NCX and maps spine hrefs to chapter titles.
func ncxTitleMap(filename string, rootfile *epub.Rootfile) map[string]string {
	result := make(map[string]string)

	ncxData, err := findAndReadNCX(filename, rootfile)
	if err != nil {
		return result
	}

	var toc ncx
	if err := xml.Unmarshal(ncxData, &toc); err != nil {
		return result
	}

	var extract func(points []navPoint)
	extract = func(points []navPoint) {
		for _, np := range points {
			href := np.Content.Src
			title := strings.TrimSpace(np.Label.Text)

			for _, key := range hrefKeys(href) {
				if _, exists := result[key]; !exists {
					result[key] = title
				}
			}
			extract(np.Children)
		}
	}
	extract(toc.NavMap.NavPoints)

	return result
}

// hrefKeys yields the lookup keys an NCX href may be matched under:
// as written, without fragment, and by base name.
func hrefKeys(href string) []string {
	keys := []string{href}
	if idx := strings.Index(href, "#"); idx != -1 {
		keys = append(keys, href[:idx])
	}
	base := path.Base(href)
	if idx := strings.Index(base, "#"); idx != -1 {
		base = base[:idx]
	}
	return append(keys, base)
}

func findAndReadNCX(filename string, rootfile *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range rootfile.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}
	if ncxPath == "" {
		return nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}

	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}

type bookMeta struct {
	Title   string `xml:"metadata>title"`
	Creator string `xml:"metadata>creator"`
}

// opfMetadata pulls title and author from the package document. Failures
// are fine; callers fall back to the filename.
func opfMetadata(filename string) bookMeta {
	var meta bookMeta

	zr, err := zip.OpenReader(filename)
	if err != nil {
		return meta
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return meta
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return meta
		}
		xml.Unmarshal(data, &meta)
		return meta
	}
	return meta
}
