package config

import (
	"reflect"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/zclconf/go-cty/cty"
)

// Generate renders cfg as an HCL document that Parse reads back.
func Generate(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	writeBlock(root.AppendNewBlock("server", nil).Body(), reflect.ValueOf(cfg.Server))
	root.AppendNewline()
	writeBlock(root.AppendNewBlock("logging", nil).Body(), reflect.ValueOf(cfg.Logging))
	root.AppendNewline()
	writeBlock(root.AppendNewBlock("permalink", nil).Body(), reflect.ValueOf(cfg.Permalink))
	root.AppendNewline()
	writeBlock(root.AppendNewBlock("map", nil).Body(), reflect.ValueOf(cfg.Map))
	for _, pc := range cfg.Projections {
		root.AppendNewline()
		writeBlock(root.AppendNewBlock("projection", []string{pc.ID}).Body(), reflect.ValueOf(pc))
	}
	return f.Bytes()
}

func writeBlock(body *hclwrite.Body, ref reflect.Value) {
	typ := ref.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name := f.Tag.Get("hcl")
		if name == "" || name == "-" {
			continue
		}
		val, ok := toCty(ref.Field(i))
		if !ok {
			continue
		}
		body.SetAttributeValue(name, val)
	}
}

// toCty reports false for empty lists, which are left out of the document.
func toCty(ref reflect.Value) (cty.Value, bool) {
	switch ref.Type() {
	case durationType:
		return cty.StringVal(time.Duration(ref.Int()).String()), true
	case latLngType:
		ll := ref.Interface().(nums.LatLng)
		return cty.TupleVal([]cty.Value{cty.NumberFloatVal(ll.Lat), cty.NumberFloatVal(ll.Lng)}), true
	case pointType:
		pt := ref.Interface().(nums.Point)
		return cty.TupleVal([]cty.Value{cty.NumberFloatVal(pt.X), cty.NumberFloatVal(pt.Y)}), true
	}
	switch ref.Kind() {
	case reflect.String:
		return cty.StringVal(ref.String()), true
	case reflect.Bool:
		return cty.BoolVal(ref.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(ref.Int()), true
	case reflect.Float32, reflect.Float64:
		return cty.NumberFloatVal(ref.Float()), true
	case reflect.Slice:
		if ref.Len() == 0 {
			return cty.NilVal, false
		}
		elms := make([]cty.Value, 0, ref.Len())
		for i := 0; i < ref.Len(); i++ {
			if v, ok := toCty(ref.Index(i)); ok {
				elms = append(elms, v)
			}
		}
		return cty.TupleVal(elms), true
	case reflect.Struct:
		attrs := map[string]cty.Value{}
		typ := ref.Type()
		for i := 0; i < typ.NumField(); i++ {
			name := typ.Field(i).Tag.Get("hcl")
			if name == "" || name == "-" {
				continue
			}
			if v, ok := toCty(ref.Field(i)); ok {
				attrs[name] = v
			}
		}
		return cty.ObjectVal(attrs), true
	}
	return cty.NilVal, false
}
