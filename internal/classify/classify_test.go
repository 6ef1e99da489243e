package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferDeclaredWins(t *testing.T) {
	// declared template beats any keyword evidence in the text
	got := Infer("This is a PROVIDER FAX FORM", TemplateOTCFax)
	assert.Equal(t, TemplateOTCFax, got)
}

func TestInferDeclaredDefaultDoesNotOverride(t *testing.T) {
	got := Infer("Provider Fax Form - Referral", TemplateDefault)
	assert.Equal(t, TemplateProviderFax, got)
}

func TestInferFromKeywords(t *testing.T) {
	tests := []struct {
		name string
		hint string
		want Template
	}{
		{"provider marker", "ACME Health\nProvider Fax Form\nPatient: ...", TemplateProviderFax},
		{"provider marker case insensitive", "PROVIDER FAX FORM", TemplateProviderFax},
		{"otc long form", "Over-the-Counter Product Order", TemplateOTCFax},
		{"otc abbreviation", "OTC order sheet", TemplateOTCFax},
		{"provider beats otc when both present", "Provider Fax Form with OTC medication list", TemplateProviderFax},
		{"no markers", "quarterly report, nothing form-like here", TemplateDefault},
		{"empty hint", "", TemplateDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.hint, TemplateDefault))
		})
	}
}

func TestInferUnknownDeclaredFallsThrough(t *testing.T) {
	// an unknown declared value is ignored, keywords still apply
	got := Infer("otc order", Template("bogus_template"))
	assert.Equal(t, TemplateOTCFax, got)
}

func TestTemplateValid(t *testing.T) {
	assert.True(t, TemplateDefault.Valid())
	assert.True(t, TemplateProviderFax.Valid())
	assert.True(t, TemplateOTCFax.Valid())
	assert.False(t, Template("bogus").Valid())
}
