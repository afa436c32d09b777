package toolchain

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
)

//go:embed languages.toml
var defaultLanguages []byte

// ErrUnsupportedLanguage matches every UnsupportedLanguageError.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// UnsupportedLanguageError is returned when a requested language has no
// toolchain. No job is created for such requests.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %q", e.Language)
}

func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

// Registry maps language identifiers to toolchain specs. It is read-only
// once constructed and safe for concurrent use.
type Registry struct {
	specs   []Spec
	byID    map[string]*Spec
	aliases map[string]string
}

type languagesFile struct {
	Languages []Spec `toml:"languages"`
}

// Default returns the registry built from the embedded language list.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultLanguages))
}

// Load parses a TOML language list.
func Load(r io.Reader) (*Registry, error) {
	specs, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return NewRegistry(specs...)
}

// Parse decodes a TOML language list without building a registry.
func Parse(r io.Reader) ([]Spec, error) {
	var f languagesFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse language list: %w", err)
	}
	return f.Languages, nil
}

// NewRegistry validates specs and indexes them by id and alias.
func NewRegistry(specs ...Spec) (*Registry, error) {
	reg := &Registry{
		byID:    make(map[string]*Spec, len(specs)),
		aliases: make(map[string]string),
	}
	names := mapset.NewThreadUnsafeSet[string]()
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		id := normalize(s.ID)
		s.ID = id
		if !names.Add(id) {
			return nil, fmt.Errorf("duplicate language id or alias %q", id)
		}
		for _, a := range s.Aliases {
			a = normalize(a)
			if !names.Add(a) {
				return nil, fmt.Errorf("duplicate language id or alias %q", a)
			}
			reg.aliases[a] = id
		}
		reg.specs = append(reg.specs, s)
	}
	for i := range reg.specs {
		reg.byID[reg.specs[i].ID] = &reg.specs[i]
	}
	return reg, nil
}

// Merge returns a new registry where the given specs replace those with
// the same id and are appended otherwise.
func (r *Registry) Merge(specs ...Spec) (*Registry, error) {
	overrides := make(map[string]Spec, len(specs))
	for _, s := range specs {
		overrides[normalize(s.ID)] = s
	}
	merged := make([]Spec, 0, len(r.specs)+len(specs))
	for _, s := range r.specs {
		if o, ok := overrides[s.ID]; ok {
			merged = append(merged, o)
			delete(overrides, s.ID)
			continue
		}
		merged = append(merged, s)
	}
	for _, s := range specs {
		if _, ok := overrides[normalize(s.ID)]; ok {
			merged = append(merged, s)
		}
	}
	return NewRegistry(merged...)
}

// Resolve finds the spec for a language id or alias, ignoring case.
func (r *Registry) Resolve(language string) (*Spec, error) {
	id := normalize(language)
	if canonical, ok := r.aliases[id]; ok {
		id = canonical
	}
	spec, ok := r.byID[id]
	if !ok {
		return nil, &UnsupportedLanguageError{Language: language}
	}
	return spec, nil
}

// IDs returns the canonical language ids.
func (r *Registry) IDs() mapset.Set[string] {
	ids := mapset.NewSet[string]()
	for _, s := range r.specs {
		ids.Add(s.ID)
	}
	return ids
}

// List returns the specs sorted by id.
func (r *Registry) List() []Spec {
	list := slices.Clone(r.specs)
	slices.SortFunc(list, func(a, b Spec) int {
		return strings.Compare(a.ID, b.ID)
	})
	return list
}

// Images returns the distinct container images referenced by the specs.
func (r *Registry) Images() []string {
	images := mapset.NewThreadUnsafeSet[string]()
	for _, s := range r.specs {
		if s.Image != "" {
			images.Add(s.Image)
		}
	}
	list := images.ToSlice()
	slices.Sort(list)
	return list
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
