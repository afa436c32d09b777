// Package toolchain describes how each supported language is compiled and
// executed. Descriptions are data: they are loaded once at start-up and
// never mutated afterwards.
package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// ClassNameRule values.
const (
	// NoRule keeps the submitted source as is.
	NoRule = ""
	// PublicClassRule renames the single public top-level type of the
	// source to the job's entry name.
	PublicClassRule = "public-class"
)

// Spec is the toolchain description of a single language.
type Spec struct {
	ID      string   `toml:"id" json:"id"`
	Aliases []string `toml:"aliases" json:"aliases,omitempty"`
	Name    string   `toml:"name" json:"name"`

	Extension    string   `toml:"extension" json:"extension"`
	SourceFile   string   `toml:"source_file" json:"-"`
	CompileCmd   []string `toml:"compile_cmd" json:"-"`
	CompiledFile string   `toml:"compiled_file" json:"-"`
	RunCmd       []string `toml:"run_cmd" json:"-"`

	// Image is the container image used by the docker runtime.
	Image string `toml:"image" json:"image,omitempty"`

	ClassNameRule string `toml:"class_name_rule" json:"-"`
	HelloWorld    string `toml:"hello_world" json:"-"`
}

// Vars are the values substituted into file and command templates.
type Vars struct {
	Entry  string
	Source string
	Binary string
	Job    string
}

// Compiled reports whether the language has a compile step.
func (s *Spec) Compiled() bool {
	return len(s.CompileCmd) > 0
}

// SourceName returns the source file name for the given entry name.
func (s *Spec) SourceName(entry string) string {
	return s.expand(s.SourceFile, Vars{Entry: entry})
}

// ArtifactName returns the compiled artifact file name, or "" for
// interpreted languages.
func (s *Spec) ArtifactName(entry string) string {
	if s.CompiledFile == "" {
		return ""
	}
	return s.expand(s.CompiledFile, Vars{Entry: entry})
}

// CompileArgv expands the compile command. It returns nil for
// interpreted languages.
func (s *Spec) CompileArgv(v Vars) []string {
	return s.Expand(s.CompileCmd, v)
}

// RunArgv expands the run command.
func (s *Spec) RunArgv(v Vars) []string {
	return s.Expand(s.RunCmd, v)
}

// Expand substitutes placeholders in every element of argv. Elements
// are never split or joined, so no shell ever sees them.
func (s *Spec) Expand(argv []string, v Vars) []string {
	if len(argv) == 0 {
		return nil
	}
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = s.expand(a, v)
	}
	return out
}

func (s *Spec) expand(tmpl string, v Vars) string {
	return strings.NewReplacer(
		"{entry}", v.Entry,
		"{src}", v.Source,
		"{bin}", v.Binary,
		"{job}", v.Job,
	).Replace(tmpl)
}

func (s *Spec) validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if s.SourceFile == "" {
		errs = append(errs, errors.New("source_file is empty"))
	}
	if len(s.RunCmd) == 0 {
		errs = append(errs, errors.New("run_cmd is empty"))
	}
	if s.Compiled() && s.CompiledFile == "" {
		errs = append(errs, errors.New("compile_cmd given without compiled_file"))
	}
	switch s.ClassNameRule {
	case NoRule, PublicClassRule:
	default:
		errs = append(errs, fmt.Errorf("unknown class_name_rule %q", s.ClassNameRule))
	}
	if len(errs) > 0 {
		return fmt.Errorf("language %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}
