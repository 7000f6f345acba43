package enrichment

import (
	"math"
	"sort"
	"sync"

	"github.com/propscout/propscout/errors"
)

// Descriptor pairs a visibility rule with a section builder.
//
// Visible must be pure and must not assume any provider is present in the
// ResultSet. Build is only called when Visible returned true; it parses the
// payloads it needs and returns an error for payloads that fail validation.
type Descriptor struct {
	Name     string
	Priority *int // lower renders first; nil sorts after every prioritised descriptor
	Visible  func(ResultSet) bool
	Build    func(ResultSet) (Section, error)
}

func (d Descriptor) rank() int {
	if d.Priority == nil {
		return math.MaxInt
	}
	return *d.Priority
}

// Failure records a descriptor dropped from a selection, or the part of a
// kept section that could not be built.
type Failure struct {
	Descriptor string
	Stage      string // "visible" or "build"
	Err        error
}

// Selection is the result of running a ResultSet through a Registry.
type Selection struct {
	Sections []Section
	Failures []Failure
}

// Registry is an ordered list of descriptors. Register everything before the
// registry is shared; Select never mutates it.
type Registry struct {
	mu          sync.RWMutex
	descriptors []Descriptor
}

// NewRegistry creates a registry holding the given descriptors in order.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{}
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a descriptor. Duplicate priorities are allowed; ties keep
// registration order.
func (r *Registry) Register(d Descriptor) error {
	if d.Visible == nil || d.Build == nil {
		return errors.Newf("descriptor %q needs both Visible and Build", d.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Names returns descriptor names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// Select filters descriptors by their Visible rule, stable-sorts the
// survivors by priority and builds one section per survivor.
//
// A descriptor whose rule or builder panics, or whose builder returns an
// error, is left out and reported in Failures; the others are unaffected.
// A builder that returns both a section and an error degraded part of its
// section: the section is kept and the error is still reported.
// An empty ResultSet yields an empty, non-nil section list.
func (r *Registry) Select(rs ResultSet) Selection {
	r.mu.RLock()
	descriptors := make([]Descriptor, len(r.descriptors))
	copy(descriptors, r.descriptors)
	r.mu.RUnlock()

	sel := Selection{Sections: make([]Section, 0, len(descriptors))}

	visible := descriptors[:0]
	for _, d := range descriptors {
		ok, err := evaluate(d, rs)
		if err != nil {
			sel.Failures = append(sel.Failures, Failure{Descriptor: d.Name, Stage: "visible", Err: err})
			continue
		}
		if ok {
			visible = append(visible, d)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].rank() < visible[j].rank()
	})

	for _, d := range visible {
		section, err := build(d, rs)
		if err != nil {
			sel.Failures = append(sel.Failures, Failure{Descriptor: d.Name, Stage: "build", Err: err})
			if section == nil {
				continue
			}
		}
		sel.Sections = append(sel.Sections, section)
	}

	return sel
}

func evaluate(d Descriptor, rs ResultSet) (visible bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("visibility rule for %q panicked: %v", d.Name, p)
		}
	}()
	return d.Visible(rs), nil
}

func build(d Descriptor, rs ResultSet) (section Section, err error) {
	defer func() {
		if p := recover(); p != nil {
			section = nil
			err = errors.Newf("builder for %q panicked: %v", d.Name, p)
		}
	}()
	section, err = d.Build(rs)
	if err != nil {
		return section, errors.Wrapf(err, "build %s", d.Name)
	}
	if section == nil {
		return nil, errors.Newf("builder for %q returned no section", d.Name)
	}
	return section, nil
}
