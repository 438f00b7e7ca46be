package shared

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldBinding names a repeater and its sub-fields. Each logical sub-field
// maps to a list of aliases; the first non-empty one in a row wins.
type FieldBinding struct {
	Repeater string              `yaml:"repeater"`
	FieldKey string              `yaml:"field_key,omitempty"`
	Fields   map[string][]string `yaml:"fields"`
}

// Aliases returns the aliases bound to a logical sub-field, falling back to
// the logical name itself.
func (b FieldBinding) Aliases(logical string) []string {
	if a := b.Fields[logical]; len(a) > 0 {
		return a
	}
	return []string{logical}
}

// BlockBinding ties a block identifier to the repeater it renders.
type BlockBinding struct {
	Name          string       `yaml:"name"`
	DefaultAnchor string       `yaml:"default_anchor"`
	Taxonomy      string       `yaml:"taxonomy"`
	Fields        FieldBinding `yaml:"fields"`
}

type Blocks struct {
	OptionsObject string       `yaml:"options_object"`
	FAQ           BlockBinding `yaml:"faq"`
	Reviews       BlockBinding `yaml:"reviews"`
	Shortcode     string       `yaml:"shortcode"`
}

// Logical sub-field names understood by the normalizer.
const (
	FieldName       = "name"
	FieldBody       = "body"
	FieldTitle      = "title"
	FieldLocation   = "location"
	FieldRating     = "rating"
	FieldID         = "id"
	FieldURL        = "url"
	FieldCategories = "categories"
	FieldQuestion   = "question"
	FieldAnswer     = "answer"
)

func DefaultBlocks() Blocks {
	return Blocks{
		OptionsObject: "option",
		Shortcode:     "testimonials",
		FAQ: BlockBinding{
			Name:          "blocks/faq-list",
			DefaultAnchor: "faq-list",
			Taxonomy:      "faq_category",
			Fields: FieldBinding{
				Repeater: "faq_acf_repeater",
				FieldKey: "field_faq_acf_repeater",
				Fields: map[string][]string{
					FieldQuestion:   {"faq_question", "question"},
					FieldAnswer:     {"faq_answer", "answer"},
					FieldCategories: {"faq_category", "categories", "category"},
				},
			},
		},
		Reviews: BlockBinding{
			Name:          "acf/review-list",
			DefaultAnchor: "review-list",
			Taxonomy:      "testimonial_category",
			Fields: FieldBinding{
				Repeater: "client_testimonials",
				FieldKey: "field_client_testimonials",
				Fields: map[string][]string{
					FieldName:       {"reviewer_name", "name"},
					FieldBody:       {"review_body", "body"},
					FieldTitle:      {"review_title", "title"},
					FieldLocation:   {"reviewer_location", "location"},
					FieldRating:     {"rating_number", "review_rating", "rating"},
					FieldID:         {"review_id", "id"},
					FieldURL:        {"review_original_location", "url"},
					FieldCategories: {"review_category", "categories", "category"},
				},
			},
		},
	}
}

// LoadBlocks reads a YAML bindings file on top of the defaults.
func LoadBlocks(path string) (Blocks, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Blocks{}, fmt.Errorf("read blocks file: %w", err)
	}
	return ParseBlocks(raw)
}

func ParseBlocks(raw []byte) (Blocks, error) {
	b := DefaultBlocks()
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return Blocks{}, fmt.Errorf("parse blocks file: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Blocks{}, err
	}
	return b, nil
}

func (b Blocks) Validate() error {
	var missing []string
	if strings.TrimSpace(b.FAQ.Name) == "" {
		missing = append(missing, "faq.name")
	}
	if strings.TrimSpace(b.FAQ.Fields.Repeater) == "" {
		missing = append(missing, "faq.fields.repeater")
	}
	if strings.TrimSpace(b.Reviews.Name) == "" {
		missing = append(missing, "reviews.name")
	}
	if strings.TrimSpace(b.Reviews.Fields.Repeater) == "" {
		missing = append(missing, "reviews.fields.repeater")
	}
	if len(missing) > 0 {
		return fmt.Errorf("blocks file: missing %s", strings.Join(missing, ", "))
	}
	if b.FAQ.Name == b.Reviews.Name {
		return fmt.Errorf("blocks file: faq and reviews share block name %q", b.FAQ.Name)
	}
	return nil
}
