package grpc

import (
	"encoding/json"
	"fmt"

	"github.com/joaopapereira/crates.io/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts a JSON-tagged value into a Struct through its JSON form,
// so responses carry the same field names as the registry's JSON encodings.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func stringField(req *structpb.Struct, key string) string {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	s := stringField(req, key)
	if s == "" {
		return "", common.Human("missing `%s`", key)
	}
	return s, nil
}

func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, common.Human("`%s` must be a number", key)
	}
	n := v.GetNumberValue()
	if n != float64(int(n)) {
		return 0, common.Human("`%s` must be an integer", key)
	}
	return int(n), nil
}

func boolField(req *structpb.Struct, key string) bool {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

func stringList(req *structpb.Struct, key string) ([]string, bool) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, false
	}
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out, true
}
