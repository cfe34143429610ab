package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// missingFields validates req and returns the labels of failing fields, in
// declaration order. Labels come from the label struct tag; nested labels
// are joined with a space, so Name inside Returned By reads
// "Returned By Name".
func missingFields(req any) ([]string, error) {
	err := validate.Struct(req)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	t := indirect(reflect.TypeOf(req))
	labels := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		labels = append(labels, fieldLabel(t, fe.StructNamespace()))
	}
	return labels, nil
}

// fieldLabel resolves a namespace such as "receiptRequest.ReturnedBy.Name"
// against t and joins the label of every field on the path.
func fieldLabel(t reflect.Type, namespace string) string {
	parts := strings.Split(namespace, ".")[1:]
	labels := make([]string, 0, len(parts))
	for _, name := range parts {
		f, ok := t.FieldByName(name)
		if !ok {
			labels = append(labels, name)
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}
		labels = append(labels, label)
		t = indirect(f.Type)
	}
	return strings.Join(labels, " ")
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
