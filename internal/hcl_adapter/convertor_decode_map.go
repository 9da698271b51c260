package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// decodeMap stores a cty map or object into a Go map with string keys.
// map[string]any takes plain Go values; typed maps decode each element.
func (c *Converter) decodeMap(ctx context.Context, val cty.Value, target reflect.Value) error {
	if !val.Type().IsMapType() && !val.Type().IsObjectType() {
		return fmt.Errorf("expected a map, got %s", val.Type().FriendlyName())
	}
	if target.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("unsupported map key type %s", target.Type().Key())
	}

	if target.Type() == anyMapType {
		native, err := ctyToNative(val)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(native))
		return nil
	}

	ctxlog.FromContext(ctx).Debug("Decoding map argument.", "go_type", target.Type().String(), "entries", val.LengthInt())
	out := reflect.MakeMapWithSize(target.Type(), val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		name := key.AsString()
		ptr := reflect.New(target.Type().Elem())
		if err := c.decode(ctx, elem, ptr.Elem()); err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		out.SetMapIndex(reflect.ValueOf(name).Convert(target.Type().Key()), ptr.Elem())
	}
	target.Set(out)
	return nil
}
