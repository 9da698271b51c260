package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	ctyValueType = reflect.TypeOf(cty.Value{})
	anyMapType   = reflect.TypeOf((map[string]any)(nil))
)

// decode stores val into target, which must be settable. Null values leave
// the target untouched so preset defaults survive.
func (c *Converter) decode(ctx context.Context, val cty.Value, target reflect.Value) error {
	goType := target.Type()
	if goType == ctyValueType {
		if val.IsWhollyKnown() {
			target.Set(reflect.ValueOf(val))
		}
		return nil
	}
	if !val.IsKnown() || val.IsNull() {
		return nil
	}

	switch goType.Kind() {
	case reflect.Interface:
		native, err := ctyToNative(val)
		if err != nil {
			return err
		}
		if native != nil {
			target.Set(reflect.ValueOf(native))
		}
		return nil

	case reflect.Map:
		return c.decodeMap(ctx, val, target)

	case reflect.Slice:
		return c.decodeSlice(ctx, val, target)

	case reflect.Struct:
		return c.decodeStruct(ctx, val, target)

	default:
		want, err := gocty.ImpliedType(reflect.Zero(goType).Interface())
		if err != nil {
			return fmt.Errorf("unsupported Go type %s: %w", goType, err)
		}
		converted, err := convert.Convert(val, want)
		if err != nil {
			return fmt.Errorf("expected %s, got %s", want.FriendlyName(), val.Type().FriendlyName())
		}
		return gocty.FromCtyValue(converted, target.Addr().Interface())
	}
}

// decodeSlice accepts lists, tuples and sets; elements decode one by one so
// a tuple of mixed literals can still fill a []int.
func (c *Converter) decodeSlice(ctx context.Context, val cty.Value, target reflect.Value) error {
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return fmt.Errorf("expected a list, got %s", ty.FriendlyName())
	}
	ctxlog.FromContext(ctx).Debug("Decoding list argument.", "go_type", target.Type().String(), "length", val.LengthInt())

	out := reflect.MakeSlice(target.Type(), val.LengthInt(), val.LengthInt())
	for i, it := 0, val.ElementIterator(); it.Next(); i++ {
		_, elem := it.Element()
		if err := c.decode(ctx, elem, out.Index(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	target.Set(out)
	return nil
}

// decodeStruct fills a nested struct from an object, matching attributes to
// the same `stagegrid` tags used for top-level arguments.
func (c *Converter) decodeStruct(ctx context.Context, val cty.Value, target reflect.Value) error {
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return fmt.Errorf("expected an object, got %s", val.Type().FriendlyName())
	}
	attrs := val.AsValueMap()
	for _, f := range inputFields(target.Type()) {
		attr, ok := attrs[f.name]
		if !ok {
			if !f.optional {
				return fmt.Errorf("missing required attribute %q", f.name)
			}
			continue
		}
		if err := c.decode(ctx, attr, target.Field(f.index)); err != nil {
			return fmt.Errorf("attribute %q: %w", f.name, err)
		}
	}
	return nil
}
