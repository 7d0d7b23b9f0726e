package decode

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// DecodeMap decodes a dynamic map (typically a parsed JSON payload) into an
// arbitrary struct T. Struct fields are matched by `json` tag.
func DecodeMap[T any](m map[string]any) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("payload map is nil")
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       floatToIntHook(),
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// floatToIntHook converts float64 (the JSON number default) to int kinds,
// including map values such as map[string]int64.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}
