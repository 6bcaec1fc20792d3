package config

import (
	"math"
	"os"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

var DefaultFunctions = map[string]function.Function{
	"env":    GetEnvFunc,
	"pow":    PowFunc,
	"upper":  stdlib.UpperFunc,
	"lower":  stdlib.LowerFunc,
	"min":    stdlib.MinFunc,
	"max":    stdlib.MaxFunc,
	"abs":    stdlib.AbsoluteFunc,
	"floor":  stdlib.FloorFunc,
	"ceil":   stdlib.CeilFunc,
	"format": stdlib.FormatFunc,
	"strlen": stdlib.StrlenFunc,
	"substr": stdlib.SubstrFunc,
}

// env("NAME", "default")
var GetEnvFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{
			Name:             "env",
			Type:             cty.String,
			AllowDynamicType: true,
		},
		{
			Name:      "default",
			Type:      cty.String,
			AllowNull: true,
		},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		if out, ok := os.LookupEnv(args[0].AsString()); ok {
			return cty.StringVal(out), nil
		}
		if args[1].IsNull() {
			return cty.StringVal(""), nil
		}
		return args[1], nil
	},
})

// pow(2, 19)
var PowFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "base", Type: cty.Number},
		{Name: "exp", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var base, exp float64
		if err := gocty.FromCtyValue(args[0], &base); err != nil {
			return cty.NilVal, err
		}
		if err := gocty.FromCtyValue(args[1], &exp); err != nil {
			return cty.NilVal, err
		}
		return cty.NumberFloatVal(math.Pow(base, exp)), nil
	},
})
