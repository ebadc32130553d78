package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
)

// Source discovers handler descriptors in registry order.
type Source interface {
	Discover(ctx context.Context) ([]handler.Descriptor, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]handler.Descriptor, error)

// Discover implements Source.
func (f SourceFunc) Discover(ctx context.Context) ([]handler.Descriptor, error) {
	return f(ctx)
}

// Static is a Source over descriptors constructed in-process.
type Static []handler.Descriptor

// Discover implements Source.
func (s Static) Discover(context.Context) ([]handler.Descriptor, error) {
	out := make([]handler.Descriptor, len(s))
	copy(out, s)
	return out, nil
}

// Concat discovers from each source in turn and appends the results.
type Concat []Source

// Discover implements Source.
func (c Concat) Discover(ctx context.Context) ([]handler.Descriptor, error) {
	var out []handler.Descriptor
	for i, src := range c {
		descriptors, err := src.Discover(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "registry", "Concat", fmt.Sprintf("source %d", i))
		}
		out = append(out, descriptors...)
	}
	return out, nil
}

// Set is a validated, immutable, ordered list of handlers.
type Set struct {
	descriptors []handler.Descriptor
	base        int
}

// NewSet validates descriptors and returns a Set that owns a private copy of them.
// It fails with errors.ErrRegistryInvariant unless exactly one descriptor has the
// base role.
func NewSet(descriptors []handler.Descriptor) (*Set, error) {
	seen := make(map[string]struct{}, len(descriptors))
	base := -1
	var bases []string

	for i, d := range descriptors {
		if strings.TrimSpace(d.Name) == "" {
			return nil, errors.WrapInvalid(
				fmt.Errorf("handler at position %d has no name", i),
				"registry", "NewSet", "name validation")
		}
		if _, dup := seen[d.Name]; dup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("handler %q is registered twice", d.Name),
				"registry", "NewSet", "duplicate name check")
		}
		seen[d.Name] = struct{}{}

		if d.Instance == nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("handler %q has no instance", d.Name),
				"registry", "NewSet", "instance validation")
		}
		if d.IsBase() {
			base = i
			bases = append(bases, d.Name)
		}
	}

	switch len(bases) {
	case 1:
	case 0:
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: no base handler among %d handlers", errors.ErrRegistryInvariant, len(descriptors)),
			"registry", "NewSet", "base handler check")
	default:
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %d base handlers (%s)", errors.ErrRegistryInvariant, len(bases), strings.Join(bases, ", ")),
			"registry", "NewSet", "base handler check")
	}

	owned := make([]handler.Descriptor, len(descriptors))
	copy(owned, descriptors)
	return &Set{descriptors: owned, base: base}, nil
}

// Load discovers descriptors from src and validates them into a Set.
func Load(ctx context.Context, src Source) (*Set, error) {
	descriptors, err := src.Discover(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "registry", "Load", "discover handlers")
	}
	return NewSet(descriptors)
}

// MustNewSet is NewSet for tests and static wiring. It panics on error.
func MustNewSet(descriptors ...handler.Descriptor) *Set {
	s, err := NewSet(descriptors)
	if err != nil {
		panic(err)
	}
	return s
}

// All returns the handlers in registry order.
func (s *Set) All() []handler.Descriptor {
	out := make([]handler.Descriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// Len returns the number of handlers.
func (s *Set) Len() int { return len(s.descriptors) }

// Base returns the base handler.
func (s *Set) Base() handler.Descriptor { return s.descriptors[s.base] }

// InStage returns the decorators that run in stage, in registry order.
func (s *Set) InStage(stage handler.Stage) []handler.Descriptor {
	var out []handler.Descriptor
	for _, d := range s.descriptors {
		if d.RunsIn(stage) {
			out = append(out, d)
		}
	}
	return out
}

// Names returns handler names in registry order.
func (s *Set) Names() []string {
	names := make([]string, len(s.descriptors))
	for i, d := range s.descriptors {
		names[i] = d.Name
	}
	return names
}
