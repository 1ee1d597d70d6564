package bore

import "github.com/vango-dev/bore/pkg/dom"

type walkOptions struct {
	// includeRoot makes the walk root a candidate.
	includeRoot bool
}

// walk visits the elements under root in pre-order. A fragment root is
// replaced by its element children, each walked with includeRoot set.
// Non-matching elements never prune their subtree, and shadow roots below
// root are not entered.
func walk(root dom.Node, match predicate, visit func(*dom.Element), opts walkOptions) error {
	if f, ok := dom.FragmentOf(root); ok {
		for _, child := range f.Children() {
			if err := walk(child, match, visit, walkOptions{includeRoot: true}); err != nil {
				return err
			}
		}
		return nil
	}

	el, ok := dom.AsElement(root)
	if !ok {
		return nil
	}
	if opts.includeRoot {
		if err := check(el, match, visit); err != nil {
			return err
		}
	}
	return descend(el, match, visit)
}

func descend(el *dom.Element, match predicate, visit func(*dom.Element)) error {
	for _, child := range el.Children() {
		if err := check(child, match, visit); err != nil {
			return err
		}
		if err := descend(child, match, visit); err != nil {
			return err
		}
	}
	return nil
}

func check(el *dom.Element, match predicate, visit func(*dom.Element)) error {
	ok, err := match(el)
	if err != nil {
		return err
	}
	if ok {
		visit(el)
	}
	return nil
}
