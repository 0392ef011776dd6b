package glossary

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseEntryString(t *testing.T) {
	e := ParseEntry(json.RawMessage(`"to eat"`))
	got, ok := e.(TextDefinition)
	if !ok {
		t.Fatalf("expected TextDefinition, got %T", e)
	}
	if got.Text != "to eat" {
		t.Errorf("Text = %q, want %q", got.Text, "to eat")
	}
}

func TestParseEntryTextObject(t *testing.T) {
	e := ParseEntry(json.RawMessage(`{"type":"text","text":"to run"}`))
	got, ok := e.(TextDefinition)
	if !ok {
		t.Fatalf("expected TextDefinition, got %T", e)
	}
	if got.Text != "to run" {
		t.Errorf("Text = %q, want %q", got.Text, "to run")
	}
}

func TestParseEntryDeinflection(t *testing.T) {
	e := ParseEntry(json.RawMessage(`["食べる",["past","polite"]]`))
	got, ok := e.(Deinflection)
	if !ok {
		t.Fatalf("expected Deinflection, got %T", e)
	}
	want := Deinflection{BaseForm: "食べる", Reasons: []string{"past", "polite"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deinflection mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEntryImage(t *testing.T) {
	raw := json.RawMessage(`{"type":"image","path":"img/tree.png","width":160,"height":90,"description":"a tree","pixelated":true}`)
	e := ParseEntry(raw)
	got, ok := e.(ImageDefinition)
	if !ok {
		t.Fatalf("expected ImageDefinition, got %T", e)
	}
	want := ImageDefinition{
		Path:        "img/tree.png",
		Width:       160,
		Height:      90,
		Description: "a tree",
		Pixelated:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("image mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEntryStructuredContent(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "structured-content",
		"content": [
			{"tag":"div","data-sc":"gloss","content":[
				"definition text",
				{"tag":"br"},
				{"tag":"ruby","content":["漢字",{"tag":"rt","content":"かんじ"}]}
			]}
		]
	}`)
	e := ParseEntry(raw)
	sc, ok := e.(StructuredContent)
	if !ok {
		t.Fatalf("expected StructuredContent, got %T", e)
	}
	if len(sc.Content) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(sc.Content))
	}
	div, ok := sc.Content[0].(Element)
	if !ok {
		t.Fatalf("expected Element root, got %T", sc.Content[0])
	}
	if div.Tag != TagDiv {
		t.Errorf("root tag = %q, want div", div.Tag)
	}
	if div.Attributes["data-sc"] != "gloss" {
		t.Errorf("data-sc attribute = %q", div.Attributes["data-sc"])
	}
	if len(div.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(div.Children))
	}
	if _, ok := div.Children[1].(LineBreak); !ok {
		t.Errorf("expected LineBreak child, got %T", div.Children[1])
	}
	ruby, ok := div.Children[2].(Element)
	if !ok || ruby.Tag != TagRuby {
		t.Errorf("expected ruby element, got %#v", div.Children[2])
	}
}

func TestParseEntryStyledElementRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "structured-content",
		"content": {"tag":"span","style":{"fontWeight":"bold"},"data":{"code":"note"},"content":"rare"}
	}`)
	sc := ParseEntry(raw).(StructuredContent)
	span, ok := sc.Content[0].(Element)
	if !ok {
		t.Fatalf("expected span element, got %#v", sc.Content[0])
	}
	if string(span.RawAttributes["style"]) != `{"fontWeight":"bold"}` {
		t.Errorf("style attribute = %s", span.RawAttributes["style"])
	}
	if string(span.RawAttributes["data"]) != `{"code":"note"}` {
		t.Errorf("data attribute = %s", span.RawAttributes["data"])
	}

	b, err := json.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reparsed := ParseEntry(b).(StructuredContent)
	if diff := cmp.Diff(sc, reparsed); diff != "" {
		t.Errorf("styled element round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEntryUnknownTag(t *testing.T) {
	raw := json.RawMessage(`{"type":"structured-content","content":{"tag":"table","content":"x"}}`)
	sc := ParseEntry(raw).(StructuredContent)
	el := sc.Content[0].(Element)
	if el.Tag != TagUnknown {
		t.Errorf("tag = %q, want unknown", el.Tag)
	}
}

func TestParseEntryUnknownShape(t *testing.T) {
	for _, raw := range []string{`42`, `{"type":"hologram"}`, `["a","b","c"]`} {
		e := ParseEntry(json.RawMessage(raw))
		u, ok := e.(Unknown)
		if !ok {
			t.Fatalf("ParseEntry(%s): expected Unknown, got %T", raw, e)
		}
		if string(u.Raw) != raw {
			t.Errorf("raw not preserved: %s", u.Raw)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := []Entry{
		TextDefinition{Text: "to eat"},
		Deinflection{BaseForm: "食べる", Reasons: []string{"past"}},
		StructuredContent{Content: []Node{
			Element{
				Tag:        TagSpan,
				Attributes: map[string]string{"lang": "ja"},
				Children:   []Node{Text{Text: "食"}},
			},
		}},
		ImageDefinition{Path: "img/a.png", Width: 10, Height: 10},
	}

	s, err := Encode(entries)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(s)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if diff := cmp.Diff(entries, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmpty(t *testing.T) {
	entries, err := Decode("")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if entries != nil {
		t.Errorf("expected nil, got %#v", entries)
	}
}

func TestFlatten(t *testing.T) {
	entries := []Entry{
		TextDefinition{Text: "to eat"},
		StructuredContent{Content: []Node{
			Element{Tag: TagRuby, Children: []Node{
				Text{Text: "漢字"},
				Element{Tag: TagRt, Children: []Node{Text{Text: "かんじ"}}},
			}},
		}},
		Unknown{Raw: json.RawMessage(`42`)},
	}
	got := Flatten(entries)
	want := "to eat; 漢字"
	if got != want {
		t.Errorf("Flatten = %q, want %q", got, want)
	}
}
