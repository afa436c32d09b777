// Package materialize writes submitted source and test input into a job
// workspace, adapting the source where the toolchain requires it.
package materialize

import (
	"fmt"
	"strings"

	"github.com/programme-lv/judge/internal/toolchain"
)

// DefaultEntry is the entry name for toolchains without a class naming rule.
const DefaultEntry = "main"

// Workspace is where files are materialized.
type Workspace interface {
	ID() string
	AddFile(name string, content []byte) error
}

// MaterializationError means the submission could not be turned into
// files the toolchain accepts. It is reported like a compilation error.
type MaterializationError struct {
	Reason string
}

func (e *MaterializationError) Error() string {
	return "cannot prepare source: " + e.Reason
}

// Materialized names the files of a prepared job.
type Materialized struct {
	SourceFile string
	EntryName  string
	// empty for interpreted languages
	ArtifactFile string
}

// Source writes the submission into ws under the name the toolchain
// expects.
func Source(ws Workspace, spec *toolchain.Spec, code string) (*Materialized, error) {
	entry := DefaultEntry
	if spec.ClassNameRule == toolchain.PublicClassRule {
		entry = EntryName(ws.ID())
		renamed, err := RenamePublicClass(code, entry)
		if err != nil {
			return nil, err
		}
		code = renamed
	}

	m := &Materialized{
		SourceFile:   spec.SourceName(entry),
		EntryName:    entry,
		ArtifactFile: spec.ArtifactName(entry),
	}
	if err := ws.AddFile(m.SourceFile, []byte(code)); err != nil {
		return nil, fmt.Errorf("failed to write source: %w", err)
	}
	return m, nil
}

// EntryName derives a class name that is a valid identifier and unique
// per job.
func EntryName(jobID string) string {
	return "Main" + strings.ReplaceAll(jobID, "-", "")
}

// InputName is the file holding the stdin of the test at index.
func InputName(index int) string {
	return fmt.Sprintf("input-%03d.txt", index+1)
}

// Input writes the stdin of one test. Every test gets its own file.
func Input(ws Workspace, index int, text string) (string, error) {
	name := InputName(index)
	if err := ws.AddFile(name, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to write input %d: %w", index+1, err)
	}
	return name, nil
}
