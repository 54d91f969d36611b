package api

import (
	"reflect"
)

// keepSetFields is a mergo transformer for partial-update requests whose
// fields are all pointers. mergo fills nil fields from the current
// values on its own; this transformer stops it from descending into
// fields the client did send, so an explicit zero survives the merge.
type keepSetFields struct{}

func (keepSetFields) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() != reflect.Ptr {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.IsNil() {
			dst.Set(src)
		}
		return nil
	}
}
