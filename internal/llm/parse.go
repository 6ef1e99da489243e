package llm

import (
	"encoding/json"
	"strings"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
)

// ParseFields turns a raw model response into a field map. Responses
// wrapped in markdown code fences are unwrapped first; JSON mode mostly
// prevents those but not always. Anything that still fails to parse or
// violates the template schema is a KindInvalidResponse error, and the
// caller keeps the raw bytes for the record.
func ParseFields(raw []byte, tmpl classify.Template) (map[string]any, error) {
	cleaned := stripCodeFence(string(raw))

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, common.NewAppError(common.KindInvalidResponse, "response is not a JSON object", err)
	}

	schema := BuildFieldsJSONSchema(tmpl)
	if err := ValidateJSONAgainstSchema(schema, []byte(cleaned)); err != nil {
		return nil, common.NewAppError(common.KindInvalidResponse, "response violates template schema", err)
	}
	return fields, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
