// Package quadlet models the units produced by podman's quadlet generator and
// parses the generator's dry-run output into them.
package quadlet

import (
	"path"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is the kind of resource a quadlet source file describes.
// It is derived from the file extension only.
type Type string

// Known quadlet types.
const (
	TypeContainer Type = "container"
	TypeImage     Type = "image"
	TypePod       Type = "pod"
	TypeVolume    Type = "volume"
	TypeNetwork   Type = "network"
	TypeKube      Type = "kube"
	TypeBuild     Type = "build"
)

// Types lists every supported quadlet type.
var Types = []Type{TypeContainer, TypeImage, TypePod, TypeVolume, TypeNetwork, TypeKube, TypeBuild}

// Title returns the capitalised type name, e.g. "Container".
func (t Type) Title() string {
	return cases.Title(language.Und).String(string(t))
}

// Section returns the generator section carrying the type's own directives.
func (t Type) Section() string {
	return "X-" + t.Title()
}

// State is the lifecycle state of a quadlet inside a snapshot.
type State string

// Quadlet states.
const (
	StateUnknown  State = "unknown"
	StateActive   State = "active"
	StateInactive State = "inactive"
	StateDeleting State = "deleting"
	StateError    State = "error"
)

// Kind classifies the systemd unit behind a quadlet.
type Kind string

// Unit kinds. Every successfully parsed unit has exactly one.
const (
	KindSimple           Kind = "simple"
	KindTemplate         Kind = "template"
	KindTemplateInstance Kind = "template-instance"
)

// File is a resource referenced by a quadlet, such as an environment file or kube yaml.
type File struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Quadlet is one quadlet source file and, when generation succeeded, its systemd unit.
type Quadlet struct {
	// ID is regenerated on every collection and is only unique within one snapshot.
	ID       string   `json:"id" yaml:"id"`
	Path     string   `json:"path" yaml:"path"`
	Type     Type     `json:"type" yaml:"type"`
	State    State    `json:"state" yaml:"state"`
	Requires []string `json:"requires" yaml:"requires"`
	Files    []File   `json:"files" yaml:"files"`

	// Service is empty when the generator produced no unit for this file.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Kind            Kind   `json:"kind" yaml:"kind"`
	Template        string `json:"template,omitempty" yaml:"template,omitempty"`
	DefaultInstance string `json:"defaultInstance,omitempty" yaml:"defaultInstance,omitempty"`
	Argument        string `json:"argument,omitempty" yaml:"argument,omitempty"`
}

// Name returns the source file name.
func (q Quadlet) Name() string {
	return path.Base(q.Path)
}

// HasService reports whether the generator produced a unit.
func (q Quadlet) HasService() bool {
	return q.Service != ""
}

// IsTemplate reports whether the quadlet is a template definition.
func (q Quadlet) IsTemplate() bool {
	return q.Kind == KindTemplate
}

// IsTemplateInstance reports whether the quadlet is a concrete template instance.
func (q Quadlet) IsTemplateInstance() bool {
	return q.Kind == KindTemplateInstance
}

// Tracked reports whether systemd can report an activation state for the unit.
// Templates qualify only through a DefaultInstance.
func (q Quadlet) Tracked() bool {
	if !q.HasService() {
		return false
	}
	return q.Kind != KindTemplate || q.DefaultInstance != ""
}

// Clone returns a deep copy.
func (q Quadlet) Clone() Quadlet {
	q.Requires = slices.Clone(q.Requires)
	q.Files = slices.Clone(q.Files)
	return q
}

// newID generates quadlet ids; tests may replace it.
var newID = uuid.NewString
