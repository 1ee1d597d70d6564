package el

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/bore/pkg/dom"
)

// Policy decides how attribute keys reach an element.
type Policy int

const (
	// BucketPolicy applies the "attrs" bucket as attributes, the "events"
	// bucket as listeners and every other key as a property.
	BucketPolicy Policy = iota
	// PrefixPolicy is BucketPolicy plus aria-* and data-* keys applied as
	// attributes.
	PrefixPolicy
)

func (p Policy) String() string {
	switch p {
	case BucketPolicy:
		return "buckets"
	case PrefixPolicy:
		return "prefix"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "buckets" or "prefix" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "buckets", "bucket":
		return BucketPolicy, nil
	case "prefix":
		return PrefixPolicy, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrType, s)
}

// apply sets attrs on el. Keys are applied in sorted order so property
// setters see a stable sequence.
func (p Policy) apply(el *dom.Element, attrs Attrs) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := attrs[key]
		switch {
		case key == "attrs":
			if err := setAttrs(el, value); err != nil {
				return err
			}
		case key == "events":
			if err := addEvents(el, value); err != nil {
				return err
			}
		case p == PrefixPolicy && (strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "data-")):
			el.SetAttribute(key, fmt.Sprint(value))
		default:
			if err := el.SetProp(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func setAttrs(el *dom.Element, value any) error {
	var m map[string]any
	switch v := value.(type) {
	case nil:
		return nil
	case A:
		m = v
	case Attrs:
		m = v
	case map[string]any:
		m = v
	case map[string]string:
		m = make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
	default:
		return fmt.Errorf("%w: attrs bucket must be a string-keyed map, got %T", ErrType, value)
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		el.SetAttribute(name, fmt.Sprint(m[name]))
	}
	return nil
}

func addEvents(el *dom.Element, value any) error {
	var m map[string]dom.Listener
	switch v := value.(type) {
	case nil:
		return nil
	case Events:
		m = v
	case map[string]dom.Listener:
		m = v
	case map[string]func(*dom.Event):
		m = make(map[string]dom.Listener, len(v))
		for k, fn := range v {
			m[k] = fn
		}
	default:
		return fmt.Errorf("%w: events bucket must map names to listeners, got %T", ErrType, value)
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if m[name] == nil {
			return fmt.Errorf("%w: nil listener for %q", ErrType, name)
		}
		el.AddEventListener(name, m[name])
	}
	return nil
}
