package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
)

// BuildFieldsJSONSchema returns a JSON-Schema map for the given template.
// Nothing is required: the model is told to omit fields it cannot read,
// and a sparse-but-valid object beats a complete fabricated one. The
// schema only constrains the types of whatever does come back.
func BuildFieldsJSONSchema(tmpl classify.Template) map[string]any {
	var props map[string]any
	switch tmpl {
	case classify.TemplateProviderFax:
		props = map[string]any{
			"form_type":              stringProp(),
			"patient_first_name":     stringProp(),
			"patient_last_name":      stringProp(),
			"patient_member_id":      stringProp(),
			"patient_date_of_birth":  stringProp(),
			"patient_gender":         stringProp(),
			"patient_allergies":      map[string]any{}, // list of strings or "No Known"
			"patient_street_address": stringProp(),
			"patient_city":           stringProp(),
			"patient_state":          stringProp(),
			"patient_zip_code":       stringProp(),
			"patient_phone_number":   stringProp(),
			"prescriber_first_name":  stringProp(),
			"prescriber_last_name":   stringProp(),
			"prescriber_dea_number":  stringProp(),
			"prescriber_npi_number":  stringProp(),
			"prescriber_phone_number": stringProp(),
			"prescriber_fax_number":   stringProp(),
			"prescription_info":       stringListProp(),
			"prescriber_signature_present":             boolProp(),
			"supervising_prescriber_signature_present": boolProp(),
		}
	case classify.TemplateOTCFax:
		props = map[string]any{
			"form_type":          stringProp(),
			"member_id":          stringProp(),
			"date_of_birth":      stringProp(),
			"gender":             stringProp(),
			"first_name":         stringProp(),
			"last_name":          stringProp(),
			"street_number":      stringProp(),
			"street_name":        stringProp(),
			"apt_suite_num":      stringProp(),
			"urbanization_code":  map[string]any{"type": []string{"string", "null"}},
			"city":               stringProp(),
			"state":              stringProp(),
			"zip_code":           stringProp(),
			"daytime_phone":      stringProp(),
			"evening_phone":      stringProp(),
			"new_address_checked": boolProp(),
			"desired_month_to_receive_order":    stringProp(),
			"payment_credit_debit_card_present": boolProp(),
			"cardholder_first_name":             stringProp(),
			"cardholder_last_name":              stringProp(),
			"card_exp_date":                     stringProp(),
			"cardholder_signature_present":      boolProp(),
			"apply_remaining_balance_to_healthy_options": boolProp(),
			"otc_product_selection": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"product_code":      map[string]any{"type": []string{"string", "null"}},
						"product_name":      stringProp(),
						"quantity":          map[string]any{"type": "integer"},
						"selected_checkbox": boolProp(),
					},
				},
			},
		}
	default:
		props = map[string]any{
			"form_type":              stringProp(),
			"patient_name":           stringProp(),
			"date_of_birth":          stringProp(),
			"member_id":              stringProp(),
			"addresses":              stringListProp(),
			"allergies":              stringListProp(),
			"phone_numbers":          stringListProp(),
			"prescriptions_or_items": stringListProp(),
			"prescriber_name":        stringProp(),
			"dea_number":             stringProp(),
			"npi_number":             stringProp(),
			"quantity":               stringProp(),
			"refills":                stringProp(),
			"signature_present":      boolProp(),
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func boolProp() map[string]any {
	return map[string]any{"type": "boolean"}
}

func stringListProp() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
