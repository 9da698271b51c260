package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ValidateRegistry checks every registered handler for programming errors:
// missing functions, input constructors that do not return a struct pointer,
// duplicate argument tags and field types that cannot receive HCL values.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.ActionNames() {
		h := r.actions[name]
		if h.Run == nil {
			errs = append(errs, fmt.Sprintf("action '%s': no Run function", name))
		}
		errs = append(errs, validateInput("action", name, h.NewInput)...)
	}
	for _, name := range r.PreparerNames() {
		h := r.preparers[name]
		if h.Prepare == nil {
			errs = append(errs, fmt.Sprintf("preparer '%s': no Prepare function", name))
		}
		errs = append(errs, validateInput("preparer", name, h.NewInput)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validated.", "actions", len(r.actions), "preparers", len(r.preparers))
	return nil
}

func validateInput(kind, name string, newInput func() any) []string {
	if newInput == nil {
		return []string{fmt.Sprintf("%s '%s': no NewInput function", kind, name)}
	}
	in := newInput()
	t := reflect.TypeOf(in)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return []string{fmt.Sprintf("%s '%s': NewInput must return a pointer to a struct, got %T", kind, name, in)}
	}

	var errs []string
	seen := make(map[string]string)
	inputType := t.Elem()
	for i := 0; i < inputType.NumField(); i++ {
		field := inputType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("stagegrid"), ",")[0]
		if tagName == "" || tagName == "-" {
			continue
		}
		if prev, dup := seen[tagName]; dup {
			errs = append(errs, fmt.Sprintf("%s '%s': argument '%s' is declared by both %s and %s", kind, name, tagName, prev, field.Name))
			continue
		}
		seen[tagName] = field.Name

		if field.Type == reflect.TypeOf(cty.Value{}) || field.Type.Kind() == reflect.Interface {
			continue
		}
		if _, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface()); err != nil && field.Type != reflect.TypeOf((map[string]any)(nil)) {
			errs = append(errs, fmt.Sprintf("%s '%s', argument '%s': could not imply cty type from Go field type %s: %v", kind, name, tagName, field.Type, err))
		}
	}
	return errs
}
