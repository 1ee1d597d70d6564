package domdiff

import "github.com/vango-dev/bore/pkg/dom"

// DiffHTML parses src and dst into a scratch document and diffs them.
// With root set the first element of each is compared, roots included;
// otherwise the top-level nodes are compared as sibling lists.
func DiffHTML(src, dst string, root bool) ([]Patch, error) {
	doc := dom.NewDocument()
	if root {
		s, err := doc.ElementFromHTML(src)
		if err != nil {
			return nil, err
		}
		d, err := doc.ElementFromHTML(dst)
		if err != nil {
			return nil, err
		}
		return Diff(Options{Destination: d, Source: s, Root: true}), nil
	}

	s, d := doc.CreateDocumentFragment(), doc.CreateDocumentFragment()
	if err := s.SetInnerHTML(src); err != nil {
		return nil, err
	}
	if err := d.SetInnerHTML(dst); err != nil {
		return nil, err
	}
	return Diff(Options{Destination: d, Source: s}), nil
}
