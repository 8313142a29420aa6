// Package profiles describes the output shapes a translation job can produce:
// which language columns are translated, which columns are derived, and the
// final column order.
package profiles

const (
	// DefaultName is the profile used for unknown or empty target names.
	DefaultName = "default"

	// SourceColumn holds the strings every translation starts from.
	SourceColumn = "en"
	// SourceCode is the API code of SourceColumn.
	SourceCode = "en"

	// PivotColumn is the simplified Chinese column. When the input already has
	// it, it is kept verbatim and used as the source for PivotTargets.
	PivotColumn = "cn"
	// PivotCode is the API code of PivotColumn.
	PivotCode = "zh-CN"
)

// StepKind says how a step fills its column.
type StepKind int

const (
	// StepTranslate calls the translation API.
	StepTranslate StepKind = iota
	// StepKeep leaves an existing input column untouched.
	StepKeep
	// StepCopy duplicates another column.
	StepCopy
	// StepConstant fills the column with a fixed value.
	StepConstant
)

func (k StepKind) String() string {
	switch k {
	case StepTranslate:
		return "translate"
	case StepKeep:
		return "keep"
	case StepCopy:
		return "copy"
	case StepConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Step produces one output column.
type Step struct {
	Kind   StepKind
	Column string
	From   string // source column for translate and copy steps
	Target string // API target code
	Source string // API source code
	Value  string // constant value
}

// Language maps an API language code to its output column.
type Language struct {
	Code   string
	Column string
}

// Copy derives column To from column From after all translations.
type Copy struct {
	From string
	To   string
}

// Profile is one output shape.
type Profile struct {
	Name         string
	Languages    []Language
	PivotTargets []string // codes translated from PivotColumn when it exists
	Copies       []Copy
	Constants    []string // columns added empty
	Order        []string
}

// Plan lists the steps to run, in order. hasPivot reports whether the input
// already contains PivotColumn.
func (p *Profile) Plan(hasPivot bool) []Step {
	steps := make([]Step, 0, len(p.Languages)+len(p.Copies)+len(p.Constants))

	for _, lang := range p.Languages {
		switch {
		case lang.Column == PivotColumn && hasPivot:
			steps = append(steps, Step{Kind: StepKeep, Column: lang.Column})
		case hasPivot && p.pivotSourced(lang.Code):
			steps = append(steps, Step{
				Kind:   StepTranslate,
				Column: lang.Column,
				From:   PivotColumn,
				Target: lang.Code,
				Source: PivotCode,
			})
		default:
			steps = append(steps, Step{
				Kind:   StepTranslate,
				Column: lang.Column,
				From:   SourceColumn,
				Target: lang.Code,
				Source: SourceCode,
			})
		}
	}

	for _, c := range p.Copies {
		steps = append(steps, Step{Kind: StepCopy, Column: c.To, From: c.From})
	}
	for _, name := range p.Constants {
		steps = append(steps, Step{Kind: StepConstant, Column: name})
	}

	return steps
}

// TranslatedSteps counts the steps that call the translation API.
func TranslatedSteps(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Kind == StepTranslate {
			n++
		}
	}
	return n
}

func (p *Profile) pivotSourced(code string) bool {
	for _, c := range p.PivotTargets {
		if c == code {
			return true
		}
	}
	return false
}
