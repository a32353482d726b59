package model

// File is an auxiliary configuration file shipped with an instance.
type File struct {
	Path    string `json:"path" yaml:"path" deep:"key"`
	Content []byte `json:"content,omitempty" yaml:"content,omitempty"`
}

// Warning is an advisory issue attached to a snapshot. Warnings can be
// dismissed individually.
type Warning struct {
	ID          string `json:"id" yaml:"id" deep:"key"`
	Message     string `json:"message" yaml:"message"`
	ProcessID   string `json:"processId,omitempty" yaml:"processId,omitempty"`
	ParameterID string `json:"parameterId,omitempty" yaml:"parameterId,omitempty"`
}

// Validation issue severities.
const (
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// ValidationIssue is a single finding of a validation run.
type ValidationIssue struct {
	ProcessID   string `json:"processId,omitempty" yaml:"processId,omitempty"`
	ParameterID string `json:"parameterId,omitempty" yaml:"parameterId,omitempty"`
	Severity    string `json:"severity" yaml:"severity"`
	Message     string `json:"message" yaml:"message"`
}

// Snapshot is a complete, logically immutable state of an instance
// configuration. The edit log uses snapshots both as its base (the last
// state known to match the remote store) and as the working state.
//
// Version is the optimistic concurrency token of the remote state a base
// was loaded from.
type Snapshot struct {
	Document *Document `json:"document" yaml:"document"`
	Files    []File    `json:"files,omitempty" yaml:"files,omitempty"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Version  string    `json:"version,omitempty" yaml:"version,omitempty"`
}

// Node is a shortcut for s.Document.Node(name).
func (s *Snapshot) Node(name string) *Node {
	if s == nil {
		return nil
	}
	return s.Document.Node(name)
}

// RemoveWarning drops the warning with the given id and reports whether it
// was present.
func (s *Snapshot) RemoveWarning(id string) bool {
	for i := range s.Warnings {
		if s.Warnings[i].ID == id {
			s.Warnings = append(s.Warnings[:i], s.Warnings[i+1:]...)
			return true
		}
	}
	return false
}
