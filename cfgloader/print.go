package cfgloader

import (
	"reflect"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rise-and-shine/dropsync/observability/logger"
)

const (
	maskTag    = "mask"
	maskedText = "***"
)

func printConfig(cfg any, env string) {
	logger.Named("cfgloader").
		With("environment", env, "config", flatten(reflect.ValueOf(cfg), "")).
		Info("[cfgloader]: config loaded")
}

// flatten lists the exported fields of a struct under dotted yaml keys, in
// declaration order. Values of fields tagged mask:"true" are hidden.
func flatten(val reflect.Value, prefix string) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()

	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			om.Set(prefix, nil)
			return om
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		om.Set(prefix, plain(val))
		return om
	}

	typ := val.Type()
	for i := range val.NumField() {
		ft := typ.Field(i)
		if !ft.IsExported() {
			continue
		}

		name, skip := fieldName(ft)
		if skip {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		field := val.Field(i)
		switch {
		case strings.EqualFold(ft.Tag.Get(maskTag), "true"):
			om.Set(name, masked(field))
		case expandable(field):
			for pair := flatten(field, name).Oldest(); pair != nil; pair = pair.Next() {
				om.Set(pair.Key, pair.Value)
			}
		default:
			om.Set(name, plain(field))
		}
	}

	return om
}

func expandable(val reflect.Value) bool {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return false
		}
		val = val.Elem()
	}
	return val.Kind() == reflect.Struct && val.Type() != reflect.TypeFor[time.Time]()
}

func plain(val reflect.Value) any {
	if d, ok := val.Interface().(time.Duration); ok {
		return d.String()
	}
	return val.Interface()
}

// masked keeps zero values visible so a missing secret stands out.
func masked(val reflect.Value) any {
	if val.IsZero() {
		return nil
	}
	return maskedText
}

// fieldName returns the yaml key of a field, or skip for yaml:"-".
func fieldName(f reflect.StructField) (string, bool) {
	tag, ok := f.Tag.Lookup("yaml")
	if !ok {
		return f.Name, false
	}
	if tag == "-" {
		return "", true
	}
	if idx := strings.Index(tag, ","); idx != -1 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name, false
	}
	return tag, false
}
