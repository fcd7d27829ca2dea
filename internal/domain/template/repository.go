package template

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("template not found")

// Repository defines persistence for custom templates. System templates are
// code-defined and never stored.
type Repository interface {
	List(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, id string) (*Template, error)
	Save(ctx context.Context, tpl *Template) error
	Delete(ctx context.Context, id string) error
}
