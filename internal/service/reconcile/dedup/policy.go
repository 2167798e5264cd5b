package dedup

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// AffinityRule pins headwords to a home category. Headwords are matched
// after normalization; Patterns are regular expressions tested against the
// normalized headword.
type AffinityRule struct {
	Category  string   `yaml:"category"`
	Headwords []string `yaml:"headwords"`
	Patterns  []string `yaml:"patterns"`
}

// Policy is the versioned table set driving duplicate resolution.
type Policy struct {
	Version       string         `yaml:"version"`
	Affinity      []AffinityRule `yaml:"affinity"`
	CategoryOrder []string       `yaml:"category_order"`
}

// DefaultPolicy returns the policy shipped with the binary.
func DefaultPolicy() Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("dedup: embedded policy: %v", err))
	}
	return p
}

// LoadPolicy reads and validates a policy file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes YAML policy data and validates it.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the policy tables for consistency.
func (p Policy) Validate() error {
	var errs []domain.FieldError

	if p.Version == "" {
		errs = append(errs, domain.FieldError{Field: "version", Message: "required"})
	}

	owner := make(map[string]string)
	for i, rule := range p.Affinity {
		field := fmt.Sprintf("affinity[%d]", i)
		cat := domain.Normalize(rule.Category)
		if cat == "" {
			errs = append(errs, domain.FieldError{Field: field + ".category", Message: "required"})
		}
		if len(rule.Headwords) == 0 && len(rule.Patterns) == 0 {
			errs = append(errs, domain.FieldError{Field: field, Message: "needs headwords or patterns"})
		}
		for _, hw := range rule.Headwords {
			key := domain.Normalize(hw)
			if key == "" {
				errs = append(errs, domain.FieldError{Field: field + ".headwords", Message: "empty headword"})
				continue
			}
			if prev, ok := owner[key]; ok && prev != cat {
				errs = append(errs, domain.FieldError{
					Field:   field + ".headwords",
					Message: fmt.Sprintf("%q already belongs to %q", hw, prev),
				})
				continue
			}
			owner[key] = cat
		}
		for _, pat := range rule.Patterns {
			if _, err := regexp.Compile(pat); err != nil {
				errs = append(errs, domain.FieldError{Field: field + ".patterns", Message: err.Error()})
			}
		}
	}

	seen := make(map[string]bool, len(p.CategoryOrder))
	for i, c := range p.CategoryOrder {
		key := domain.Normalize(c)
		field := fmt.Sprintf("category_order[%d]", i)
		switch {
		case key == "":
			errs = append(errs, domain.FieldError{Field: field, Message: "empty category"})
		case seen[key]:
			errs = append(errs, domain.FieldError{Field: field, Message: fmt.Sprintf("duplicate category %q", c)})
		}
		seen[key] = true
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// tables is the compiled, normalized form of a Policy.
type tables struct {
	version  string
	home     map[string]string
	patterns []homePattern
	rank     map[string]int
}

type homePattern struct {
	re       *regexp.Regexp
	category string
}

func compile(p Policy) (*tables, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	t := &tables{
		version: p.Version,
		home:    make(map[string]string),
		rank:    make(map[string]int, len(p.CategoryOrder)),
	}
	for _, rule := range p.Affinity {
		cat := domain.Normalize(rule.Category)
		for _, hw := range rule.Headwords {
			t.home[domain.Normalize(hw)] = cat
		}
		for _, pat := range rule.Patterns {
			t.patterns = append(t.patterns, homePattern{re: regexp.MustCompile(pat), category: cat})
		}
	}
	for i, c := range p.CategoryOrder {
		t.rank[domain.Normalize(c)] = i
	}
	return t, nil
}

// homeOf returns the home category for a normalized headword, or "".
func (t *tables) homeOf(headword string) string {
	if cat, ok := t.home[headword]; ok {
		return cat
	}
	for _, hp := range t.patterns {
		if hp.re.MatchString(headword) {
			return hp.category
		}
	}
	return ""
}

// rankOf returns the priority of a normalized category. Unlisted categories
// share the lowest priority.
func (t *tables) rankOf(category string) int {
	if r, ok := t.rank[category]; ok {
		return r
	}
	return len(t.rank)
}
