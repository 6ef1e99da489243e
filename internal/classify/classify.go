// Package classify picks the extraction template for an incoming
// document, either from the sender's declaration or from keywords in a
// quick text pass over the content.
package classify

import "strings"

// Template names a field-extraction template.
type Template string

const (
	// TemplateDefault extracts a generic set of document fields.
	TemplateDefault Template = "default"
	// TemplateProviderFax is the healthcare provider referral form.
	TemplateProviderFax Template = "provider_fax_form"
	// TemplateOTCFax is the over-the-counter product order form.
	TemplateOTCFax Template = "otc_fax_form"
)

// Valid reports whether t is one of the known templates.
func (t Template) Valid() bool {
	switch t {
	case TemplateDefault, TemplateProviderFax, TemplateOTCFax:
		return true
	}
	return false
}

// keywordRules are checked in order; the first template whose keywords
// match wins. Provider detection runs before OTC so that a provider form
// mentioning OTC products still classifies as a provider form.
var keywordRules = []struct {
	template Template
	keywords []string
}{
	{TemplateProviderFax, []string{"provider fax form"}},
	{TemplateOTCFax, []string{"over-the-counter", "otc"}},
}

// Infer resolves the template for a document. A caller-declared template
// other than the default always wins; otherwise the hint text is scanned
// for known form markers. Unrecognized content stays on the default
// template rather than guessing.
func Infer(hint string, declared Template) Template {
	if declared != "" && declared != TemplateDefault && declared.Valid() {
		return declared
	}

	lower := strings.ToLower(hint)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.template
			}
		}
	}
	return TemplateDefault
}
