package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crm-api/models"
)

func TestRenderSubstitutesClientFields(t *testing.T) {
	phone := "+1 555 0100"
	client := &models.Client{Name: "Acme Corp", Email: "info@acme.test", Phone: &phone}

	out := Render("Hi {{client_name}}, we will call {{client_phone}} or write to {{client_email}}.", client)
	assert.Equal(t, "Hi Acme Corp, we will call +1 555 0100 or write to info@acme.test.", out)
}

func TestRenderNilPhoneBecomesEmpty(t *testing.T) {
	client := &models.Client{Name: "Acme", Email: "a@b.test"}
	assert.Equal(t, "phone: ", Render("phone: {{client_phone}}", client))
}

func TestRenderLeavesUnknownTokensVerbatim(t *testing.T) {
	client := &models.Client{Name: "Acme"}
	assert.Equal(t, "{{owner_name}} / Acme", Render("{{owner_name}} / {{client_name}}", client))
}

func TestRenderIsSinglePass(t *testing.T) {
	// A client name containing a token must not be expanded again.
	client := &models.Client{Name: "{{client_email}}", Email: "a@b.test"}
	assert.Equal(t, "{{client_email}}", Render("{{client_name}}", client))
}
