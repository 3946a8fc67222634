package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks that s can be restored into a graph: the wire shape is
// complete, node ids are unique, every config is valid for its role, and
// every edge joins two distinct existing nodes under its derived id.
//
// It does not check connectivity or acyclicity.
func (s FlowState) Validate() error {
	if s.Version > StateVersion {
		return fmt.Errorf("%w: unsupported flowState version %d", ErrMalformedDocument, s.Version)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedDocument, describe(err))
	}

	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformedDocument, n.ID)
		}
		ids[n.ID] = true
		if strings.Contains(n.ID, edgeSeparator) {
			return fmt.Errorf("%w: node id %q contains %q", ErrMalformedDocument, n.ID, edgeSeparator)
		}

		if err := n.Data.Validate(); err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrMalformedDocument, n.ID, err)
		}
		if n.Type.Role() != n.Data.Role() {
			return fmt.Errorf("%w: node %q has type %q but role %q", ErrMalformedDocument, n.ID, n.Type, n.Data.Role())
		}
	}

	edges := make(map[string]bool, len(s.Edges))
	for _, e := range s.Edges {
		switch {
		case e.Source == e.Target:
			return fmt.Errorf("%w: edge %q is a self loop", ErrMalformedDocument, e.ID)
		case !ids[e.Source]:
			return fmt.Errorf("%w: edge %q: unknown source %q", ErrMalformedDocument, e.ID, e.Source)
		case !ids[e.Target]:
			return fmt.Errorf("%w: edge %q: unknown target %q", ErrMalformedDocument, e.ID, e.Target)
		case e.ID != EdgeID(e.Source, e.Target):
			return fmt.Errorf("%w: edge %q does not match %q", ErrMalformedDocument, e.ID, EdgeID(e.Source, e.Target))
		case edges[e.ID]:
			return fmt.Errorf("%w: duplicate edge %q", ErrMalformedDocument, e.ID)
		}
		edges[e.ID] = true
	}
	return nil
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
