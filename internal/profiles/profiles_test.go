package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columns(steps []Step, kind StepKind) []string {
	var out []string
	for _, s := range steps {
		if s.Kind == kind {
			out = append(out, s.Column)
		}
	}
	return out
}

func findStep(t *testing.T, steps []Step, column string) Step {
	t.Helper()
	for _, s := range steps {
		if s.Column == column {
			return s
		}
	}
	t.Fatalf("no step for column %s", column)
	return Step{}
}

func TestResolve(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		want string
	}{
		{"app", "app"},
		{"backend", "backend"},
		{"f_app", "f_app"},
		{"", DefaultName},
		{"web", DefaultName},
		{"APP", DefaultName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.name).Name)
		})
	}

	assert.Equal(t, []string{"app", "backend", DefaultName, "f_app"}, r.Names())
}

func TestDefaultPlan_WithoutPivot(t *testing.T) {
	steps := NewRegistry().Resolve(DefaultName).Plan(false)

	assert.Len(t, steps, 17)
	assert.Equal(t, 17, TranslatedSteps(steps))

	cn := findStep(t, steps, "cn")
	assert.Equal(t, Step{Kind: StepTranslate, Column: "cn", From: "en", Target: "zh-CN", Source: "en"}, cn)

	hant := findStep(t, steps, "zh-Hant")
	assert.Equal(t, "en", hant.From)
	assert.Equal(t, "zh-TW", hant.Target)

	en := findStep(t, steps, "en")
	assert.Equal(t, "en", en.Target)
	assert.Equal(t, "en", en.Source)
}

func TestDefaultPlan_WithPivot(t *testing.T) {
	steps := NewRegistry().Resolve(DefaultName).Plan(true)

	assert.Equal(t, []string{"cn"}, columns(steps, StepKeep))
	assert.Equal(t, 16, TranslatedSteps(steps))

	for _, column := range []string{"zh-Hant", "ja"} {
		s := findStep(t, steps, column)
		assert.Equal(t, "cn", s.From, column)
		assert.Equal(t, "zh-CN", s.Source, column)
	}

	de := findStep(t, steps, "de")
	assert.Equal(t, "en", de.From)
	assert.Equal(t, "en", de.Source)
}

func TestAppPlan(t *testing.T) {
	p := NewRegistry().Resolve("app")
	steps := p.Plan(false)

	assert.Equal(t, 17, TranslatedSteps(steps))
	assert.Equal(t, []string{"namespace", "type", "description"}, columns(steps, StepConstant))
	assert.Equal(t, []string{"namespace", "type", "description"}, p.Order[len(p.Order)-3:])
	assert.Len(t, p.Order, 21)
}

func TestBackendPlan(t *testing.T) {
	p := NewRegistry().Resolve("backend")
	steps := p.Plan(false)

	assert.Equal(t, 19, TranslatedSteps(steps))
	assert.Equal(t, []string{"iw"}, columns(steps, StepCopy))
	assert.Equal(t, []string{"namespace"}, columns(steps, StepConstant))

	iw := findStep(t, steps, "iw")
	assert.Equal(t, "he", iw.From)

	for _, column := range []string{"sv", "nl"} {
		s := findStep(t, steps, column)
		assert.Equal(t, "en", s.Source)
	}

	// copies run after the column they read from is produced
	var heIdx, iwIdx int
	for i, s := range steps {
		switch s.Column {
		case "he":
			heIdx = i
		case "iw":
			iwIdx = i
		}
	}
	assert.Less(t, heIdx, iwIdx)

	assert.Equal(t, []string{
		"key", "cn", "zh-Hant", "en", "ja", "de", "fr", "ru", "it", "es",
		"fi", "he", "iw", "ar", "vi", "pt", "pl", "tr", "cs", "sv", "nl", "namespace",
	}, p.Order)
}

func TestFAppPlan(t *testing.T) {
	p := NewRegistry().Resolve("f_app")

	for _, hasPivot := range []bool{false, true} {
		steps := p.Plan(hasPivot)
		assert.Equal(t, []string{"es", "de", "fr", "it", "pt"}, columns(steps, StepTranslate))
		for _, s := range steps {
			assert.Equal(t, "en", s.From)
		}
	}
	assert.Equal(t, []string{"key", "en", "es", "de", "fr", "it", "pt"}, p.Order)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		wantErr string
	}{
		{"nil", nil, "no name"},
		{"no order", &Profile{Name: "x"}, "empty column order"},
		{"bad code", &Profile{Name: "x", Order: []string{"key"}, Languages: []Language{{Code: "not a code!", Column: "x"}}}, "invalid language code"},
		{"no column", &Profile{Name: "x", Order: []string{"key"}, Languages: []Language{{Code: "de"}}}, "has no column"},
		{"duplicate column", &Profile{Name: "x", Order: []string{"key"}, Languages: []Language{{Code: "de", Column: "de"}, {Code: "de-AT", Column: "de"}}}, "translated twice"},
		{"bad copy", &Profile{Name: "x", Order: []string{"key"}, Copies: []Copy{{From: "he"}}}, "copy needs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	for _, p := range builtinProfiles() {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

const sampleTOML = `
[[profile]]
name = "web"
base = "default"
constants = ["namespace"]
order = ["key", "en", "de", "pt_br", "namespace"]
languages = [{ code = "de" }, { code = "pt-BR", column = "pt_br" }]

[[profile]]
name = "backend"
base = "backend"
copies = [{ from = "pt", to = "pt_pt" }]
`

func TestDecode(t *testing.T) {
	loaded, err := Decode([]byte(sampleTOML))
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	web := loaded[0]
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, []Language{{Code: "de", Column: "de"}, {Code: "pt-BR", Column: "pt_br"}}, web.Languages)
	assert.Equal(t, []string{"zh-TW", "ja"}, web.PivotTargets)
	assert.Equal(t, []string{"namespace"}, web.Constants)

	backend := loaded[1]
	assert.Len(t, backend.Languages, 19)
	assert.Equal(t, []Copy{{From: "he", To: "iw"}, {From: "pt", To: "pt_pt"}}, backend.Copies)
	assert.Equal(t, []string{"namespace"}, backend.Constants)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", `[[profile]`},
		{"missing name", "[[profile]]\norder = [\"key\"]\n"},
		{"bad name", "[[profile]]\nname = \"we b\"\norder = [\"key\"]\n"},
		{"bad code", "[[profile]]\nname = \"x\"\norder = [\"key\"]\nlanguages = [{ code = \"??\" }]\n"},
		{"unknown base", "[[profile]]\nname = \"x\"\nbase = \"nope\"\n"},
		{"no order", "[[profile]]\nname = \"x\"\nlanguages = [{ code = \"de\" }]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))

	r := NewRegistry()
	names, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "backend"}, names)

	web, ok := r.Lookup("web")
	require.True(t, ok)
	assert.Equal(t, "web", r.Resolve("web").Name)
	assert.Len(t, web.Languages, 2)
	assert.Len(t, r.Resolve("backend").Copies, 2)

	_, err = r.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&Profile{Name: "mini", Order: []string{"key", "en"}}))
	assert.Contains(t, r.Names(), "mini")

	assert.Error(t, r.Register(&Profile{Name: "broken"}))
	_, ok := r.Lookup("broken")
	assert.False(t, ok)
}
