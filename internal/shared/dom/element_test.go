package dom

import (
	"strings"
	"testing"
)

func TestParseBuildsTree(t *testing.T) {
	root, err := Parse(`<div id="app"><span>hi</span></div><p>tail</p>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !root.HasChildren() {
		t.Fatal("expected children")
	}
	divs := root.Query("div")
	if len(divs) != 1 || divs[0].GetAttribute("id") != "app" {
		t.Errorf("expected one div#app, got %v", divs)
	}
	if len(root.Query("span")) != 1 {
		t.Error("expected nested span found by query")
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	root, err := Parse(`<div><span>hi</span></div>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	clone := root.Clone()
	clone.Query("div")[0].SetAttribute("id", "changed")

	if root.Query("div")[0].GetAttribute("id") != "" {
		t.Error("mutating the clone must not touch the original")
	}
}

func TestParseAcceptsArbitraryFragments(t *testing.T) {
	// Fragment parsing must work for the shapes real entry bodies take:
	// multiple top-level elements, bare text, nested markup.
	for _, fragment := range []string{
		`<div>x</div>`,
		`<div>a</div><section>b</section>`,
		`plain text`,
		`<ul><li>1</li><li>2</li></ul>trailing`,
		``,
	} {
		if _, err := Parse(fragment); err != nil {
			t.Errorf("Parse(%q) failed: %v", fragment, err)
		}
	}
}

func TestCloneChildrenIntoKeepsSource(t *testing.T) {
	src, err := Parse(`<div>content</div>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	dst := NewElement("micro-app")

	src.CloneChildrenInto(dst)

	if !dst.HasChildren() {
		t.Fatal("expected destination populated")
	}
	if !src.HasChildren() {
		t.Error("source must keep its children after the clone")
	}

	// A second clone from the untouched source must still work.
	other := NewElement("micro-app")
	src.CloneChildrenInto(other)
	if !other.HasChildren() {
		t.Error("source must stay clonable")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	root, err := Parse(`<div class="a">x</div>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out := root.Render()
	if !strings.Contains(out, `class="a"`) || !strings.Contains(out, "x") {
		t.Errorf("render lost content: %q", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(again.Query("div")) == 0 {
		t.Error("expected rendered output to parse back")
	}
}

func TestClearChildren(t *testing.T) {
	root, err := Parse(`<div>x</div>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	root.ClearChildren()
	if root.HasChildren() {
		t.Error("expected no children after clear")
	}
}
