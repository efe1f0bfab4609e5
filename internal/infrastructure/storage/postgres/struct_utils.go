package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns extracts all column names from struct "db" tags, walking
// embedded structs (entity.Catalog, entity.Document) recursively. Called once
// per repository at construction time.
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			cols = append(cols, columnsOf(field.Type)...)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// fieldPlan is the cached mapping of one struct type to its db columns.
type fieldPlan struct {
	fields   []fieldRef
	embedded []int
}

type fieldRef struct {
	index int
	dbTag string
}

var planCache sync.Map // reflect.Type -> *fieldPlan

func planFor(t reflect.Type) *fieldPlan {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := planCache.Load(t); ok {
		return cached.(*fieldPlan)
	}

	plan := &fieldPlan{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				plan.embedded = append(plan.embedded, i)
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			plan.fields = append(plan.fields, fieldRef{index: i, dbTag: tag})
		}
	}

	planCache.Store(t, plan)
	return plan
}

// StructToMap converts a struct to a column->value map using "db" tags.
// Reflection metadata is cached per type, so repeated calls are cheap.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	plan := planFor(rv.Type())
	res := make(map[string]any, len(plan.fields))

	for _, f := range plan.fields {
		res[f.dbTag] = rv.Field(f.index).Interface()
	}
	for _, i := range plan.embedded {
		for k, val := range StructToMap(rv.Field(i).Interface()) {
			res[k] = val
		}
	}

	return res
}
