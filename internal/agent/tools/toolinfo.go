package tools

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/aleostudio/ai-agent/internal/agent/model"
)

// toToolInfo converts a cached tool spec into an eino descriptor, mapping
// the provider's JSON input schema onto eino parameter info.
func toToolInfo(spec model.ToolSpec) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        spec.Name,
		Desc:        spec.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(paramsFromSchema(spec.InputSchema)),
	}
}

// paramsFromSchema walks the top-level properties of a JSON schema object.
// Unknown or malformed fragments degrade to a plain string parameter rather
// than failing the conversion.
func paramsFromSchema(js map[string]any) map[string]*schema.ParameterInfo {
	params := make(map[string]*schema.ParameterInfo)
	if js == nil {
		return params
	}

	required := map[string]bool{}
	if reqs, ok := js["required"].([]any); ok {
		for _, r := range reqs {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	props, ok := js["properties"].(map[string]any)
	if !ok {
		return params
	}
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		params[name] = parameterInfo(prop, required[name])
	}
	return params
}

func parameterInfo(prop map[string]any, required bool) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Type:     schema.String,
		Required: required,
	}
	if prop == nil {
		return info
	}

	if desc, ok := prop["description"].(string); ok {
		info.Desc = desc
	}

	switch typeName(prop) {
	case "integer":
		info.Type = schema.Integer
	case "number":
		info.Type = schema.Number
	case "boolean":
		info.Type = schema.Boolean
	case "array":
		info.Type = schema.Array
		if items, ok := prop["items"].(map[string]any); ok {
			info.ElemInfo = parameterInfo(items, false)
		} else {
			info.ElemInfo = &schema.ParameterInfo{Type: schema.String}
		}
	case "object":
		info.Type = schema.Object
		info.SubParams = paramsFromSchema(prop)
	default:
		info.Type = schema.String
		if enum, ok := prop["enum"].([]any); ok {
			for _, e := range enum {
				info.Enum = append(info.Enum, fmt.Sprint(e))
			}
		}
	}
	return info
}

// typeName tolerates both "type": "string" and nullable unions like
// "type": ["string", "null"].
func typeName(prop map[string]any) string {
	switch t := prop["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}
