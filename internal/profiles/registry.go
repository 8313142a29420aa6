package profiles

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/richxcame/langsheet/pkg/validation"
)

// Registry resolves target names to profiles.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry returns a registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range builtinProfiles() {
		r.profiles[p.Name] = p
	}
	return r
}

// Resolve returns the named profile, or the default profile when the name is
// unknown or empty.
func (r *Registry) Resolve(name string) *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[name]; ok {
		return p
	}
	return r.profiles[DefaultName]
}

// Lookup returns the named profile without falling back.
func (r *Registry) Lookup(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	return p, ok
}

// Names lists the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a profile after validating it.
func (r *Registry) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	r.profiles[p.Name] = p
	r.mu.Unlock()
	return nil
}

// LoadFile registers every profile found in a TOML file. Nothing is registered
// when any profile in the file is invalid.
func (r *Registry) LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profiles: read %s: %w", path, err)
	}

	loaded, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("profiles: %s: %w", path, err)
	}

	names := make([]string, 0, len(loaded))
	r.mu.Lock()
	for _, p := range loaded {
		r.profiles[p.Name] = p
		names = append(names, p.Name)
	}
	r.mu.Unlock()

	return names, nil
}

// Validate checks the profile for unusable language codes and column names.
func (p *Profile) Validate() error {
	if p == nil || p.Name == "" {
		return errors.New("profiles: profile has no name")
	}
	if len(p.Order) == 0 {
		return fmt.Errorf("profiles: %s: empty column order", p.Name)
	}

	seen := make(map[string]bool)
	for _, lang := range p.Languages {
		if !validation.IsLanguageTag(lang.Code) {
			return fmt.Errorf("profiles: %s: invalid language code %q", p.Name, lang.Code)
		}
		if lang.Column == "" {
			return fmt.Errorf("profiles: %s: language %s has no column", p.Name, lang.Code)
		}
		if seen[lang.Column] {
			return fmt.Errorf("profiles: %s: column %s translated twice", p.Name, lang.Column)
		}
		seen[lang.Column] = true
	}
	for _, code := range p.PivotTargets {
		if !validation.IsLanguageTag(code) {
			return fmt.Errorf("profiles: %s: invalid pivot target %q", p.Name, code)
		}
	}
	for _, c := range p.Copies {
		if c.From == "" || c.To == "" {
			return fmt.Errorf("profiles: %s: copy needs both from and to", p.Name)
		}
	}
	return nil
}

type fileLanguage struct {
	Code   string `toml:"code" validate:"required,language_tag"`
	Column string `toml:"column"`
}

type fileCopy struct {
	From string `toml:"from" validate:"required"`
	To   string `toml:"to" validate:"required"`
}

type fileProfile struct {
	Name         string         `toml:"name" validate:"required,profile_name"`
	Base         string         `toml:"base"`
	Languages    []fileLanguage `toml:"languages" validate:"dive"`
	PivotTargets []string       `toml:"pivot_targets" validate:"dive,language_tag"`
	Copies       []fileCopy     `toml:"copies" validate:"dive"`
	Constants    []string       `toml:"constants"`
	Order        []string       `toml:"order"`
}

type file struct {
	Profiles []fileProfile `toml:"profile" validate:"dive"`
}

// Decode parses TOML profile definitions:
//
//	[[profile]]
//	name = "web"
//	base = "default"          # optional, inherits languages and order
//	order = ["key", "en", "de"]
//	constants = ["namespace"]
//	languages = [{ code = "de" }, { code = "pt-BR", column = "pt_br" }]
//
// A language without a column writes to a column named after its code.
func Decode(data []byte) ([]*Profile, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid toml: %w", err)
	}
	if err := validation.ValidateStruct(&f); err != nil {
		return nil, err
	}

	builtins := make(map[string]*Profile)
	for _, p := range builtinProfiles() {
		builtins[p.Name] = p
	}

	out := make([]*Profile, 0, len(f.Profiles))
	for _, fp := range f.Profiles {
		p := &Profile{Name: fp.Name}

		if fp.Base != "" {
			base, ok := builtins[fp.Base]
			if !ok {
				return nil, fmt.Errorf("profile %s: unknown base %q", fp.Name, fp.Base)
			}
			p.Languages = append(p.Languages, base.Languages...)
			p.PivotTargets = append(p.PivotTargets, base.PivotTargets...)
			p.Copies = append(p.Copies, base.Copies...)
			p.Constants = append(p.Constants, base.Constants...)
			p.Order = append(p.Order, base.Order...)
		}

		if len(fp.Languages) > 0 {
			p.Languages = p.Languages[:0:0]
			for _, l := range fp.Languages {
				column := l.Column
				if column == "" {
					column = l.Code
				}
				p.Languages = append(p.Languages, Language{Code: l.Code, Column: column})
			}
		}
		if fp.PivotTargets != nil {
			p.PivotTargets = fp.PivotTargets
		}
		for _, c := range fp.Copies {
			p.Copies = append(p.Copies, Copy{From: c.From, To: c.To})
		}
		p.Constants = append(p.Constants, fp.Constants...)
		if len(fp.Order) > 0 {
			p.Order = fp.Order
		}

		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, nil
}
