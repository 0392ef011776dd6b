// Package glossary models the definition content of a dictionary term as a
// closed tree of sum types. Yomitan glossary arrays mix plain strings,
// structured-content markup, deinflection pointers and images; every shape
// maps onto exactly one Entry variant, with Unknown absorbing anything a
// newer schema revision might add.
package glossary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one element of a term's glossary array.
//
// Variants: TextDefinition, StructuredContent, Deinflection,
// ImageDefinition, Unknown.
type Entry interface {
	entry()
	json.Marshaler
}

// TextDefinition is a plain-text definition.
type TextDefinition struct {
	Text string
}

// StructuredContent is a definition carrying a markup tree.
type StructuredContent struct {
	Content []Node
}

// Deinflection marks the entry as an inflected form of another term.
type Deinflection struct {
	BaseForm string
	Reasons  []string
}

// ImageDefinition is a definition rendered as an image.
type ImageDefinition struct {
	Path        string
	Width       int
	Height      int
	Title       string
	Description string
	Pixelated   bool
}

// Unknown preserves an unrecognized glossary element verbatim so that
// re-serialization does not lose data.
type Unknown struct {
	Raw json.RawMessage
}

func (TextDefinition) entry()    {}
func (StructuredContent) entry() {}
func (Deinflection) entry()      {}
func (ImageDefinition) entry()   {}
func (Unknown) entry()           {}

// Node is one node of a structured-content tree.
//
// Variants: Text, LineBreak, Element.
type Node interface {
	node()
	json.Marshaler
}

// Text is a text leaf.
type Text struct {
	Text string
}

// LineBreak is an explicit line break ("br" tag).
type LineBreak struct{}

// Element is a markup element with a tag, attributes and children. String
// attribute values land in Attributes; anything else (style objects, data
// maps) is preserved verbatim in RawAttributes so re-serialization is
// lossless.
type Element struct {
	Tag           Tag
	Attributes    map[string]string
	RawAttributes map[string]json.RawMessage
	Children      []Node
}

func (Text) node()      {}
func (LineBreak) node() {}
func (Element) node()   {}

// Tag identifies a structured-content element kind past the parser.
type Tag string

const (
	TagDiv     Tag = "div"
	TagRuby    Tag = "ruby"
	TagRt      Tag = "rt"
	TagRp      Tag = "rp"
	TagLink    Tag = "a"
	TagSpan    Tag = "span"
	TagImage   Tag = "img"
	TagSummary Tag = "summary"
	TagUnknown Tag = "unknown"
)

var knownTags = map[string]Tag{
	"div":     TagDiv,
	"ruby":    TagRuby,
	"rt":      TagRt,
	"rp":      TagRp,
	"a":       TagLink,
	"span":    TagSpan,
	"img":     TagImage,
	"summary": TagSummary,
}

// ParseEntry classifies a raw glossary array element into an Entry variant
// by shape. Unrecognized shapes become Unknown; classification never fails.
func ParseEntry(raw json.RawMessage) Entry {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return TextDefinition{Text: s}
	}

	// Array form: ["基本形", ["reason", ...]].
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if d, ok := parseDeinflection(arr); ok {
			return d
		}
		return Unknown{Raw: cloneRaw(raw)}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Unknown{Raw: cloneRaw(raw)}
	}
	var typ string
	if t, ok := obj["type"]; ok {
		_ = json.Unmarshal(t, &typ)
	}
	switch typ {
	case "text":
		var text string
		_ = json.Unmarshal(obj["text"], &text)
		return TextDefinition{Text: text}
	case "structured-content":
		return StructuredContent{Content: parseContent(obj["content"])}
	case "image":
		return parseImage(obj)
	default:
		return Unknown{Raw: cloneRaw(raw)}
	}
}

// ParseAll classifies every element of a glossary array.
func ParseAll(raws []json.RawMessage) []Entry {
	if len(raws) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, ParseEntry(raw))
	}
	return entries
}

func parseDeinflection(arr []json.RawMessage) (Deinflection, bool) {
	if len(arr) != 2 {
		return Deinflection{}, false
	}
	var base string
	if err := json.Unmarshal(arr[0], &base); err != nil {
		return Deinflection{}, false
	}
	var reasons []string
	if err := json.Unmarshal(arr[1], &reasons); err != nil {
		return Deinflection{}, false
	}
	return Deinflection{BaseForm: base, Reasons: reasons}, true
}

func parseImage(obj map[string]json.RawMessage) Entry {
	var img ImageDefinition
	_ = json.Unmarshal(obj["path"], &img.Path)
	_ = json.Unmarshal(obj["width"], &img.Width)
	_ = json.Unmarshal(obj["height"], &img.Height)
	_ = json.Unmarshal(obj["title"], &img.Title)
	_ = json.Unmarshal(obj["description"], &img.Description)
	_ = json.Unmarshal(obj["pixelated"], &img.Pixelated)
	return img
}

// parseContent parses the "content" value of a structured-content object:
// a string, a single node object, or an array of either.
func parseContent(raw json.RawMessage) []Node {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []Node{Text{Text: s}}
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var nodes []Node
		for _, el := range arr {
			nodes = append(nodes, parseContent(el)...)
		}
		return nodes
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return []Node{parseElement(obj)}
}

func parseElement(obj map[string]json.RawMessage) Node {
	var tagName string
	_ = json.Unmarshal(obj["tag"], &tagName)
	if tagName == "br" {
		return LineBreak{}
	}

	tag, ok := knownTags[tagName]
	if !ok {
		tag = TagUnknown
	}

	el := Element{Tag: tag}
	for k, v := range obj {
		if k == "tag" || k == "content" {
			continue
		}
		var sv string
		if err := json.Unmarshal(v, &sv); err == nil {
			if el.Attributes == nil {
				el.Attributes = make(map[string]string)
			}
			el.Attributes[k] = sv
			continue
		}
		if el.RawAttributes == nil {
			el.RawAttributes = make(map[string]json.RawMessage)
		}
		el.RawAttributes[k] = cloneRaw(v)
	}
	el.Children = parseContent(obj["content"])
	return el
}

// MarshalJSON renders the entry back into its Yomitan glossary form.
func (e TextDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Text)
}

func (e StructuredContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":    "structured-content",
		"content": marshalContent(e.Content),
	})
}

func (e Deinflection) MarshalJSON() ([]byte, error) {
	reasons := e.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return json.Marshal([]any{e.BaseForm, reasons})
}

func (e ImageDefinition) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type": "image",
		"path": e.Path,
	}
	if e.Width > 0 {
		m["width"] = e.Width
	}
	if e.Height > 0 {
		m["height"] = e.Height
	}
	if e.Title != "" {
		m["title"] = e.Title
	}
	if e.Description != "" {
		m["description"] = e.Description
	}
	if e.Pixelated {
		m["pixelated"] = true
	}
	return json.Marshal(m)
}

func (e Unknown) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

func (n Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Text)
}

func (n LineBreak) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"tag": "br"})
}

func (n Element) MarshalJSON() ([]byte, error) {
	m := map[string]any{"tag": string(n.Tag)}
	for k, v := range n.Attributes {
		m[k] = v
	}
	for k, v := range n.RawAttributes {
		m[k] = v
	}
	if len(n.Children) > 0 {
		m["content"] = marshalContent(n.Children)
	}
	return json.Marshal(m)
}

func marshalContent(nodes []Node) any {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return nodes
}

// Encode serializes a glossary to its storage form, a JSON array.
func Encode(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode glossary: %w", err)
	}
	return string(b), nil
}

// Decode parses the storage form written by Encode.
func Decode(s string) ([]Entry, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raws); err != nil {
		return nil, fmt.Errorf("decode glossary: %w", err)
	}
	return ParseAll(raws), nil
}

// Flatten renders a glossary as plain text, one definition per element,
// separated by "; ". Structured content is reduced to its text leaves.
func Flatten(entries []Entry) string {
	var parts []string
	for _, e := range entries {
		switch v := e.(type) {
		case TextDefinition:
			parts = append(parts, v.Text)
		case StructuredContent:
			if t := flattenNodes(v.Content); t != "" {
				parts = append(parts, t)
			}
		case Deinflection:
			parts = append(parts, v.BaseForm)
		case ImageDefinition:
			if v.Description != "" {
				parts = append(parts, v.Description)
			}
		case Unknown:
			// Nothing sensible to show.
		}
	}
	return strings.Join(parts, "; ")
}

func flattenNodes(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch v := n.(type) {
		case Text:
			b.WriteString(v.Text)
		case LineBreak:
			b.WriteString("\n")
		case Element:
			// Reading annotations duplicate the base text when flattened.
			if v.Tag == TagRt || v.Tag == TagRp {
				continue
			}
			b.WriteString(flattenNodes(v.Children))
		}
	}
	return b.String()
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	c := make(json.RawMessage, len(raw))
	copy(c, raw)
	return c
}
