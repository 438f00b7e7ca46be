package app

import (
	"strings"

	"review_blocks/internal/domain"
)

const schemaContext = "https://schema.org"

// Node is one JSON-LD object.
type Node = map[string]any

// Document is the ordered graph handed around by the structured-data hook.
// Assemblers only append to it.
type Document []Node

// Has reports whether a node with the given @id is already present.
func (d Document) Has(id string) bool {
	if id == "" {
		return false
	}
	for _, n := range d {
		if s, ok := n["@id"].(string); ok && s == id {
			return true
		}
	}
	return false
}

// AppendUnique appends n unless a node with the same @id exists. The whole
// group is skipped on collision; existing nodes are left untouched.
func (d Document) AppendUnique(n Node) (Document, bool) {
	if n == nil {
		return d, false
	}
	if id, _ := n["@id"].(string); d.Has(id) {
		return d, false
	}
	return append(d, n), true
}

// SchemaContext locates a group within the page.
type SchemaContext struct {
	Permalink string
	Anchor    string
}

func (c SchemaContext) ID(fragment string) string {
	return strings.TrimRight(c.Permalink, "#") + "#" + fragment
}

// AssembleFaq builds one FAQPage node. Pairs whose answer has no text are
// left out; nil is returned when nothing remains.
func AssembleFaq(recs []domain.FaqRecord, sc SchemaContext) Node {
	entities := make([]any, 0, len(recs))
	for _, r := range recs {
		answer := PlainText(r.Answer)
		if r.Question == "" || answer == "" {
			continue
		}
		entities = append(entities, Node{
			"@type": "Question",
			"name":  r.Question,
			"acceptedAnswer": Node{
				"@type": "Answer",
				"text":  answer,
			},
		})
	}
	if len(entities) == 0 {
		return nil
	}
	return Node{
		"@context":   schemaContext,
		"@type":      "FAQPage",
		"@id":        sc.ID(sc.Anchor),
		"mainEntity": entities,
	}
}

// AssembleReviews builds one ItemList node for a review group.
func AssembleReviews(recs []domain.ReviewRecord, sc SchemaContext) Node {
	if len(recs) == 0 {
		return nil
	}
	items := make([]any, 0, len(recs))
	for i, r := range recs {
		items = append(items, Node{
			"@type":    "ListItem",
			"position": i + 1,
			"item":     reviewNode(r, sc),
		})
	}
	return Node{
		"@context":        schemaContext,
		"@type":           "ItemList",
		"@id":             sc.ID(sc.Anchor),
		"numberOfItems":   len(items),
		"itemListElement": items,
	}
}

func reviewNode(r domain.ReviewRecord, sc SchemaContext) Node {
	n := Node{
		"@type":      "Review",
		"@id":        sc.ID(r.ID),
		"reviewBody": r.Body,
		"author": Node{
			"@type": "Person",
			"name":  r.AuthorLabel(),
		},
	}
	if r.Title != "" {
		n["name"] = r.Title
	}
	if r.SourceURL != nil {
		n["url"] = *r.SourceURL
	}
	if r.Rating != nil {
		n["reviewRating"] = Node{
			"@type":       "Rating",
			"ratingValue": *r.Rating,
			"bestRating":  5,
			"worstRating": 1,
		}
	}
	return n
}
