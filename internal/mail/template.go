package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const SellerSelectedSubject = "🎉 You've been selected for a project!"

var sellerSelectedTmpl = template.Must(template.New("seller_selected").Parse(`
<h2>Hello {{.SellerName}},</h2>
<p>You have been selected to work on the project: <strong>{{.ProjectTitle}}</strong>.</p>
<p>Status: <strong>{{.Status}}</strong></p>
<br>
<p>Log in to your account to get started.</p>
<hr>
<p>Thank you,<br/>{{.TeamName}}</p>
`))

type SellerSelected struct {
	SellerName   string
	ProjectTitle string
	Status       string
	TeamName     string
}

// RenderSellerSelected renders the notification sent to a seller picked for a project.
func RenderSellerSelected(data SellerSelected) (string, error) {
	if data.SellerName == "" {
		data.SellerName = "Seller"
	}
	if data.TeamName == "" {
		data.TeamName = "Project Team"
	}

	var buf bytes.Buffer
	if err := sellerSelectedTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render seller selected mail: %w", err)
	}
	return buf.String(), nil
}
