package el

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/bore/pkg/dom"
)

func TestBuildTagName(t *testing.T) {
	b := New(dom.NewDocument())
	for _, tag := range []string{"div", "span", "x-custom"} {
		n, err := b.Build(tag, nil)
		if err != nil {
			t.Fatalf("Build(%q): %v", tag, err)
		}
		if got := n.(*dom.Element).LocalName(); got != tag {
			t.Errorf("LocalName = %q, want %q", got, tag)
		}
	}
}

func TestBuildFactory(t *testing.T) {
	doc := dom.NewDocument()
	b := New(doc)
	made := doc.CreateElement("section")

	n, err := b.Build(func() *dom.Element { return made }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != dom.Node(made) {
		t.Error("Build should return exactly the node the factory returned")
	}

	txt := doc.CreateTextNode("t")
	n, err = b.Build(func() dom.Node { return txt }, nil)
	if err != nil || n != dom.Node(txt) {
		t.Errorf("Build(func() dom.Node) = %v, %v", n, err)
	}

	if _, err := b.Build(func() *dom.Element { return nil }, nil); !errors.Is(err, ErrType) {
		t.Errorf("nil factory result: err = %v, want ErrType", err)
	}
}

func TestBuildDefinition(t *testing.T) {
	doc := dom.NewDocument()
	b := New(doc)
	constructed := 0
	def := &dom.Definition{Constructor: func(*dom.Element) { constructed++ }}

	if _, err := b.Build(def, nil); !errors.Is(err, dom.ErrIllegalConstructor) {
		t.Errorf("unregistered definition: err = %v, want ErrIllegalConstructor", err)
	}
	doc.Registry().Define("x-widget", def)

	n, err := b.Build(def, nil)
	if err != nil {
		t.Fatal(err)
	}
	el := n.(*dom.Element)
	if el.LocalName() != "x-widget" || el.Definition() != def {
		t.Errorf("got %s upgraded with %p", el.LocalName(), el.Definition())
	}
	if constructed != 1 {
		t.Errorf("constructor ran %d times, want 1", constructed)
	}
}

func TestBuildInvalidName(t *testing.T) {
	b := New(dom.NewDocument())
	for _, name := range []any{42, nil, "", struct{}{}} {
		if _, err := b.Build(name, nil); !errors.Is(err, ErrType) {
			t.Errorf("Build(%#v): err = %v, want ErrType", name, err)
		}
	}
}

func TestBucketPolicy(t *testing.T) {
	b := New(dom.NewDocument())
	clicks := 0
	n := b.H("input", Attrs{
		"id":         "name",
		"value":      "x",
		"aria-label": "Name",
		"attrs":      A{"type": "text", "rating": 10},
		"events":     Events{"click": func(*dom.Event) { clicks++ }},
	})
	el := n.(*dom.Element)

	if el.ID() != "name" {
		t.Errorf("id = %q, want name", el.ID())
	}
	if el.HasAttribute("value") {
		t.Error("value should be a property, not an attribute")
	}
	if el.Prop("value") != "x" {
		t.Errorf("value prop = %v, want x", el.Prop("value"))
	}
	if el.HasAttribute("aria-label") {
		t.Error("aria-label should be a property under the bucket policy")
	}
	if el.GetAttribute("type") != "text" || el.GetAttribute("rating") != "10" {
		t.Errorf("attrs = %v", el.Attributes())
	}
	el.DispatchEvent(dom.NewEvent("click", false))
	if clicks != 1 {
		t.Errorf("click listener ran %d times, want 1", clicks)
	}
}

func TestPrefixPolicy(t *testing.T) {
	b := New(dom.NewDocument(), WithPolicy(PrefixPolicy))
	el := b.H("div", Attrs{
		"aria-hidden": true,
		"data-id":     7,
		"title":       "t",
		"attrs":       map[string]string{"role": "note"},
	}).(*dom.Element)

	want := map[string]string{"aria-hidden": "true", "data-id": "7", "role": "note"}
	got := map[string]string{}
	for _, a := range el.Attributes() {
		got[a.Name] = a.Value
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	if el.Prop("title") != "t" {
		t.Errorf("title prop = %v, want t", el.Prop("title"))
	}
}

func TestMalformedBuckets(t *testing.T) {
	b := New(dom.NewDocument())
	tests := []struct {
		name  string
		attrs Attrs
	}{
		{"attrs not a map", Attrs{"attrs": "nope"}},
		{"events not listeners", Attrs{"events": map[string]string{"click": "x"}}},
		{"nil listener", Attrs{"events": Events{"click": nil}}},
		{"read-only prop", Attrs{"tagName": "P"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build("div", tt.attrs)
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if _, err := b.Build(func() dom.Node { return b.Text("t") }, Attrs{"id": "x"}); !errors.Is(err, ErrType) {
		t.Errorf("attrs on text: err = %v, want ErrType", err)
	}
}

func TestHPanicsOnError(t *testing.T) {
	b := New(dom.NewDocument())
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrType) {
			t.Errorf("recovered %v, want ErrType", r)
		}
	}()
	b.H(3.14, nil)
}

func TestChildren(t *testing.T) {
	b := New(dom.NewDocument())
	var missing *dom.Element
	var comment *dom.Comment
	var shadow *dom.ShadowRoot
	el := b.H("p", nil,
		"a",
		nil,
		b.H("b", nil, "bold"),
		missing,
		comment,
		shadow,
		[]dom.Node{comment, nil, shadow},
		42,
		Range([]string{"x", "y"}, func(s string, _ int) dom.Node { return b.H("i", nil, s) }),
		If(false, b.H("u", nil)),
	).(*dom.Element)

	if got := el.InnerHTML(); got != "a<b>bold</b>42<i>x</i><i>y</i>" {
		t.Errorf("InnerHTML = %q", got)
	}
}

func TestFragmentHelper(t *testing.T) {
	b := New(dom.NewDocument())
	f, err := b.Fragment(b.H("li", nil, "1"), b.Textf("%d", 2))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.InnerHTML(); got != "<li>1</li>2" {
		t.Errorf("InnerHTML = %q", got)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", BucketPolicy, false},
		{"buckets", BucketPolicy, false},
		{"PREFIX", PrefixPolicy, false},
		{"other", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
