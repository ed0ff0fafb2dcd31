package wizard

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/propdesk/formflow/validate"
)

// ruleSpec is the YAML form of a validation rule.
type ruleSpec struct {
	Type    string   `yaml:"type"`
	Path    string   `yaml:"path"`
	Label   string   `yaml:"label"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Pattern string   `yaml:"pattern"`
	Hint    string   `yaml:"hint"`
	// When gates the rule on a boolean flag field.
	When string `yaml:"when"`
	// WhenAny gates the rule on any of the listed fields being set.
	WhenAny []string `yaml:"when_any"`
}

type stepSpec struct {
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Required []string   `yaml:"required"`
	Rules    []ruleSpec `yaml:"rules"`
}

type definitionSpec struct {
	Kind       string     `yaml:"kind"`
	CreatePath string     `yaml:"create_path"`
	UpdatePath string     `yaml:"update_path"`
	Steps      []stepSpec `yaml:"steps"`
}

// LoadDefinition parses a YAML wizard definition. YAML-defined wizards use
// identity transforms; kinds that need payload reshaping register their
// Transform and FromEntity in code after loading.
func LoadDefinition(data []byte) (*Definition, error) {
	var spec definitionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse wizard definition: %w", err)
	}
	if spec.Kind == "" {
		return nil, fmt.Errorf("wizard definition: kind is required")
	}
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("wizard definition %q: at least one step is required", spec.Kind)
	}

	def := &Definition{
		Kind:       spec.Kind,
		CreatePath: spec.CreatePath,
		UpdatePath: spec.UpdatePath,
	}
	for _, ss := range spec.Steps {
		if ss.ID == "" {
			return nil, fmt.Errorf("wizard definition %q: step id is required", spec.Kind)
		}
		step := Step{
			ID:             ss.ID,
			Title:          ss.Title,
			RequiredFields: ss.Required,
		}
		for _, rs := range ss.Rules {
			rule, err := buildRule(rs)
			if err != nil {
				return nil, fmt.Errorf("wizard definition %q, step %q: %w", spec.Kind, ss.ID, err)
			}
			step.Rules = append(step.Rules, rule)
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

func buildRule(rs ruleSpec) (validate.Rule, error) {
	if rs.Path == "" {
		return nil, fmt.Errorf("rule %q: path is required", rs.Type)
	}
	label := rs.Label
	if label == "" {
		label = rs.Path
	}

	var rule validate.Rule
	switch rs.Type {
	case "required_string":
		rule = validate.RequiredString(rs.Path, label)
	case "required_number":
		min, max := rangeOf(rs)
		rule = validate.RequiredNumber(rs.Path, label, min, max)
	case "number_in_range":
		min, max := rangeOf(rs)
		rule = validate.NumberInRange(rs.Path, label, min, max)
	case "email":
		rule = validate.Email(rs.Path, label)
	case "url":
		rule = validate.URL(rs.Path, label)
	case "phone":
		rule = validate.Phone(rs.Path, label)
	case "area":
		rule = validate.Area(rs.Path, label)
	case "pattern":
		re, err := regexp.Compile(rs.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule for %q: bad pattern: %w", rs.Path, err)
		}
		rule = validate.Pattern(rs.Path, label, re, rs.Hint)
	default:
		return nil, fmt.Errorf("unknown rule type %q", rs.Type)
	}

	if rs.When != "" {
		rule = validate.When(validate.FlagSet(rs.When), rule)
	}
	if len(rs.WhenAny) > 0 {
		rule = validate.When(validate.AnyPresent(rs.WhenAny...), rule)
	}
	return rule, nil
}

func rangeOf(rs ruleSpec) (float64, float64) {
	min, max := -1e308, 1e308
	if rs.Min != nil {
		min = *rs.Min
	}
	if rs.Max != nil {
		max = *rs.Max
	}
	return min, max
}
