package workflow

import (
	"strings"

	"crm-api/models"
)

// Render substitutes the client placeholders in an email template string.
// Placeholders are literal tokens, not template expressions: substitution is
// single-pass, unknown tokens are left verbatim, null fields become the empty
// string and nothing is escaped.
func Render(s string, client *models.Client) string {
	phone := ""
	if client.Phone != nil {
		phone = *client.Phone
	}
	r := strings.NewReplacer(
		"{{client_name}}", client.Name,
		"{{client_email}}", client.Email,
		"{{client_phone}}", phone,
	)
	return r.Replace(s)
}
