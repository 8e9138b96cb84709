package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

var (
	reminderTmpl = template.Must(template.New("reminder").Parse(`Hi {{.OwnerName}},

This is a reminder to follow up with {{.LeadName}}{{if .Company}} ({{.Company}}){{end}}.

Status: {{.Status}}
Follow-up due: {{.Due}}
{{if .Notes}}
Notes:
{{.Notes}}
{{end}}
`))

	assignmentTmpl = template.Must(template.New("assignment").Parse(`Hi {{.OwnerName}},

{{if .AssignedBy}}{{.AssignedBy}} assigned{{else}}You have been assigned{{end}} the lead {{.LeadName}}{{if .Company}} ({{.Company}}){{end}}{{if .AssignedBy}} to you{{end}}.

Status: {{.Status}}
Email: {{.LeadEmail}}
`))
)

// LeadInfo is what the email templates know about a lead and its owner.
type LeadInfo struct {
	OwnerName  string
	OwnerEmail string
	LeadName   string
	LeadEmail  string
	Company    string
	Status     string
	Notes      string
	DueAt      time.Time
	AssignedBy string
}

func (l LeadInfo) Due() string {
	return l.DueAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

func FollowUpReminder(info LeadInfo) (Message, error) {
	body, err := render(reminderTmpl, info)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      info.OwnerEmail,
		Subject: fmt.Sprintf("Follow-up due: %s", info.LeadName),
		Body:    body,
	}, nil
}

func AssignmentNotice(info LeadInfo) (Message, error) {
	body, err := render(assignmentTmpl, info)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      info.OwnerEmail,
		Subject: fmt.Sprintf("New lead assigned: %s", info.LeadName),
		Body:    body,
	}, nil
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
