package handler

import (
	"fmt"
	"strings"
)

// Role distinguishes the single base handler from its decorators.
type Role int

const (
	// RoleBase implements the primary form and event logic. Exactly one exists.
	RoleBase Role = iota
	// RoleDecorator augments, overrides or post-processes the base handler.
	RoleDecorator
)

func (r Role) String() string {
	switch r {
	case RoleBase:
		return "base"
	case RoleDecorator:
		return "decorator"
	default:
		return "unknown"
	}
}

// ParseRole parses the configuration spelling of a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base":
		return RoleBase, nil
	case "decorator":
		return RoleDecorator, nil
	default:
		return 0, fmt.Errorf("unknown handler role %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Stage is the point in the event pipeline where a decorator runs.
type Stage int

const (
	// StageNone means the handler takes no part in event processing.
	StageNone Stage = iota
	// StageOverrideBase replaces the base handler. When any override decorator
	// responds, the base, before and after stages are skipped.
	StageOverrideBase
	// StageBeforeBase receives the submitted payload and feeds the base handler.
	StageBeforeBase
	// StageAfterBase receives the base handler's output.
	StageAfterBase
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageOverrideBase:
		return "override"
	case StageBeforeBase:
		return "before"
	case StageAfterBase:
		return "after"
	default:
		return "unknown"
	}
}

// ParseStage parses the configuration spelling of a Stage. The empty string is StageNone.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StageNone, nil
	case "override", "override_base":
		return StageOverrideBase, nil
	case "before", "before_base":
		return StageBeforeBase, nil
	case "after", "after_base":
		return StageAfterBase, nil
	default:
		return 0, fmt.Errorf("unknown execution stage %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Descriptor is a handler instance plus its static metadata. Descriptors are
// built once when the registry is assembled and never modified.
type Descriptor struct {
	Name     string
	Role     Role
	Stage    Stage
	Instance Handler
}

// IsBase reports whether d describes the base handler.
func (d Descriptor) IsBase() bool { return d.Role == RoleBase }

// RunsIn reports whether d is a decorator that participates in stage.
func (d Descriptor) RunsIn(stage Stage) bool {
	return d.Role == RoleDecorator && d.Stage == stage && stage != StageNone
}

func (d Descriptor) String() string {
	if d.Role == RoleBase {
		return fmt.Sprintf("%s(base)", d.Name)
	}
	return fmt.Sprintf("%s(decorator,%s)", d.Name, d.Stage)
}
