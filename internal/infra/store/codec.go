package store

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Encode converts a tagged struct into JSON-compatible document fields.
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	return fields, nil
}

// Decode fills out from document fields using `mapstructure` tags.
func Decode(fields map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(fields); err != nil {
		return errors.Wrap(err, "failed to decode document")
	}
	return nil
}

// DecodeDocument decodes doc into out. The document id is exposed as an
// "id" field unless the stored fields already carry one.
func DecodeDocument(doc Document, out any) error {
	fields := make(map[string]any, len(doc.Fields)+1)
	fields["id"] = doc.ID
	for k, v := range doc.Fields {
		fields[k] = v
	}
	return Decode(fields, out)
}

func marshalFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal fields")
	}
	return data, nil
}

func unmarshalFields(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal fields")
	}
	return fields, nil
}

// cloneFields deep-copies JSON-compatible values.
func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
