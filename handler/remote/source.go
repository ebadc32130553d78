package remote

import (
	"context"
	"fmt"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
	"github.com/Ironwood-Cyber/decorator-demo/handler"
	"github.com/Ironwood-Cyber/decorator-demo/registry"
)

// Source is the registry.Source adapter for a base service URL plus decorator
// service URLs. The base handler comes first, then decorators in listed order.
type Source struct {
	Config config.RemoteConfig
	Deps   registry.Dependencies
}

// Discover implements registry.Source. It does not contact the services.
func (s Source) Discover(_ context.Context) ([]handler.Descriptor, error) {
	opts := optionsFrom(s.Deps)

	base, err := New(s.Config.BaseURL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "remote", "Discover", "base handler")
	}
	out := []handler.Descriptor{{Name: "remote-base", Role: handler.RoleBase, Instance: base}}

	for i, d := range s.Config.Decorators {
		stage := handler.StageNone
		if d.Stage != "" {
			if stage, err = handler.ParseStage(d.Stage); err != nil {
				return nil, errors.WrapInvalid(err, "remote", "Discover", fmt.Sprintf("decorator %d stage", i))
			}
		}
		h, err := New(d.URL, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "remote", "Discover", fmt.Sprintf("decorator %d", i))
		}
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("remote-decorator-%d", i)
		}
		out = append(out, handler.Descriptor{Name: name, Role: handler.RoleDecorator, Stage: stage, Instance: h})
	}
	return out, nil
}

var _ registry.Source = Source{}
