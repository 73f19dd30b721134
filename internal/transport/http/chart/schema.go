package charthttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fxchart/internal/market"
)

const schemaURL = "chart_request.json"

// requestSchema 描述图表请求体；interval 的枚举来自 market 包，保证两处一致。
func requestSchema() map[string]any {
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"pairs", "start_date_time", "end_date_time"},
		"properties": map[string]any{
			"pairs":           map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
			"start_date_time": map[string]any{"type": "string", "minLength": 1, "maxLength": 32},
			"end_date_time":   map[string]any{"type": "string", "minLength": 1, "maxLength": 32},
			"interval":        map[string]any{"type": "string", "enum": market.IntervalCodes()},
		},
	}
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

// FieldError 是一条请求体校验失败信息。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateBody 校验原始请求体，返回逐字段的错误列表。
func validateBody(schema *jsonschema.Schema, body []byte) ([]FieldError, error) {
	doc, err := decodeJSON(body)
	if err != nil {
		return []FieldError{{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}}, nil
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	out := make([]FieldError, 0, 2)
	for _, e := range ve.BasicOutput().Errors {
		if e.InstanceLocation == "" && strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		field := strings.TrimPrefix(e.InstanceLocation, "/")
		if field == "" {
			field = "body"
		}
		out = append(out, FieldError{Field: field, Message: e.Error})
	}
	if len(out) == 0 {
		out = append(out, FieldError{Field: "body", Message: ve.Error()})
	}
	return out, nil
}

// decodeJSON 按 jsonschema v5 的要求解码：数字保留为 json.Number，且不允许尾随内容。
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected trailing data")
	}
	return doc, nil
}
