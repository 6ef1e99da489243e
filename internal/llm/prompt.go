package llm

import (
	"strings"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
)

const basePrompt = `You are an intelligent medical document parser.
Extract the following fields from the content provided and return them as a single JSON object.
Do NOT anonymize any of the extracted information. Return the original values.`

// omitRule keeps the model from fabricating values for blank form fields.
const omitRule = `Only include fields that are clearly present. If a field is not found or is extremely ambiguous, omit it.`

var providerFields = []string{
	`form_type: "Provider Fax Form"`,
	`patient_first_name: String`,
	`patient_last_name: String`,
	`patient_member_id: String`,
	`patient_date_of_birth: String (e.g., "YYYY-MM-DD")`,
	`patient_gender: "Male" or "Female"`,
	`patient_allergies: List of strings (e.g., ["Aspirin", "Codeine", "Penicillin"]) or "No Known"`,
	`patient_street_address: String`,
	`patient_city: String`,
	`patient_state: String (e.g., "KY")`,
	`patient_zip_code: String`,
	`patient_phone_number: String`,
	`prescriber_first_name: String`,
	`prescriber_last_name: String`,
	`prescriber_dea_number: String`,
	`prescriber_npi_number: String`,
	`prescriber_phone_number: String`,
	`prescriber_fax_number: String (near the bottom right of the form, above the prescription info, to the right of the last prescriber phone number)`,
	`prescription_info: A list of prescriptions, each returned as a single string in the format: "Drug Name and Strength: <value>, Directions: <value>, Quantity: <value>, Number of Refills: <value>". Example: "Drug Name and Strength: Lipitor 10mg, Directions: Take once daily, Quantity: 30, Number of Refills: 2"`,
	`prescriber_signature_present: boolean`,
	`supervising_prescriber_signature_present: boolean`,
}

var otcFields = []string{
	`form_type: "OTC Fax Form"`,
	`member_id: String`,
	`date_of_birth: String (e.g., "YYYY-MM-DD")`,
	`gender: "Male" or "Female"`,
	`first_name: String`,
	`last_name: String`,
	`street_number: String`,
	`street_name: String`,
	`apt_suite_num: String`,
	`urbanization_code: String (if present, otherwise null)`,
	`city: String`,
	`state: String (e.g., "IL")`,
	`zip_code: String`,
	`daytime_phone: String`,
	`evening_phone: String`,
	`new_address_checked: boolean`,
	`desired_month_to_receive_order: String`,
	`payment_credit_debit_card_present: boolean`,
	`cardholder_first_name: String`,
	`cardholder_last_name: String`,
	`card_exp_date: String (e.g., "MM/YY")`,
	`cardholder_signature_present: boolean`,
	`apply_remaining_balance_to_healthy_options: boolean`,
	`otc_product_selection: A list of objects, one for each product that has been selected. Each object should contain: product_code (String, if listed, else null), product_name (String), quantity (Integer, if a number is clearly written in the "Quantity" column), selected_checkbox (boolean, true if the checkbox in the row is marked). Only include products where either the checkbox is marked OR a quantity is filled.`,
}

var defaultFields = []string{
	`form_type: "Unknown/Default"`,
	`patient_name: String`,
	`date_of_birth: String`,
	`member_id: String`,
	`addresses: List of strings`,
	`allergies: List of strings`,
	`phone_numbers: List of strings`,
	`prescriptions_or_items: List of strings`,
	`prescriber_name: String`,
	`dea_number: String`,
	`npi_number: String`,
	`quantity: String`,
	`refills: String`,
	`signature_present: boolean`,
}

// BuildPrompt composes the extraction instruction for one request. For
// document-direct runs the content travels as an attachment and the
// prompt only carries a placeholder.
func BuildPrompt(req ExtractRequest) string {
	content := req.Text
	if len(req.Document) > 0 {
		content = "[PDF CONTENT]"
	}

	var heading string
	var fields []string
	switch req.Template {
	case classify.TemplateProviderFax:
		heading = "Text content from Provider Fax Form:"
		fields = providerFields
	case classify.TemplateOTCFax:
		heading = "Text content from OTC Fax Form:"
		fields = otcFields
	default:
		heading = "Text content:"
		fields = defaultFields
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n\nExtract the following data points:\n")
	for _, f := range fields {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(omitRule)
	return b.String()
}
