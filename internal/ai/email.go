// Package ai drafts outreach emails for leads with a generative model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
)

type EmailType string

const (
	EmailIntroduction   EmailType = "introduction"
	EmailFollowUp       EmailType = "follow-up"
	EmailProposal       EmailType = "proposal"
	EmailClosing        EmailType = "closing"
	EmailThankYou       EmailType = "thank-you"
	EmailMeetingRequest EmailType = "meeting-request"
	EmailColdOutreach   EmailType = "cold-outreach"
	EmailCustom         EmailType = "custom"
)

var EmailTypes = []EmailType{
	EmailIntroduction, EmailFollowUp, EmailProposal, EmailClosing,
	EmailThankYou, EmailMeetingRequest, EmailColdOutreach, EmailCustom,
}

func (t EmailType) Valid() bool {
	for _, v := range EmailTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	TonePersuasive   Tone = "persuasive"
)

var Tones = []Tone{ToneProfessional, ToneFriendly, ToneFormal, ToneCasual, TonePersuasive}

func (t Tone) Valid() bool {
	for _, v := range Tones {
		if t == v {
			return true
		}
	}
	return false
}

const (
	maxFieldLen  = 200
	maxPromptLen = 2000
)

type EmailRequest struct {
	LeadName     string
	LeadCompany  string
	LeadEmail    string
	EmailType    string
	Context      string
	Tone         string
	LeadStatus   string
	CustomPrompt string
}

type Email struct {
	Raw     string
	Subject string
	Body    string
}

// ValidationError reports a bad generation request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Service struct {
	gen Generator
}

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

func (s *Service) GenerateEmail(ctx context.Context, req EmailRequest) (*Email, error) {
	req = clean(req)

	if req.LeadName == "" || req.LeadEmail == "" || req.EmailType == "" {
		return nil, &ValidationError{Message: "Lead name, lead email and email type are required"}
	}
	if !validation.IsValidEmail(req.LeadEmail) {
		return nil, &ValidationError{Message: "Invalid lead email address"}
	}
	if !EmailType(req.EmailType).Valid() {
		return nil, &ValidationError{Message: "Invalid email type"}
	}
	if req.Tone == "" {
		req.Tone = string(ToneProfessional)
	}
	if !Tone(req.Tone).Valid() {
		return nil, &ValidationError{Message: "Invalid tone"}
	}

	raw, err := s.gen.Generate(ctx, BuildPrompt(req))
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) {
			return nil, err
		}
		return nil, fmt.Errorf("generating email: %w", err)
	}

	subject, body := ParseEmail(raw)
	return &Email{Raw: raw, Subject: subject, Body: body}, nil
}

func clean(req EmailRequest) EmailRequest {
	field := func(s string) string {
		return validation.TruncateString(strings.TrimSpace(validation.SanitizeString(s)), maxFieldLen)
	}
	long := func(s string) string {
		return validation.TruncateString(strings.TrimSpace(validation.SanitizeString(s)), maxPromptLen)
	}
	return EmailRequest{
		LeadName:     field(req.LeadName),
		LeadCompany:  field(req.LeadCompany),
		LeadEmail:    strings.ToLower(field(req.LeadEmail)),
		EmailType:    strings.ToLower(field(req.EmailType)),
		Context:      long(req.Context),
		Tone:         strings.ToLower(field(req.Tone)),
		LeadStatus:   field(req.LeadStatus),
		CustomPrompt: long(req.CustomPrompt),
	}
}

// BuildPrompt assembles the model instruction for req. The reply is asked
// to open with a "Subject:" line followed by a blank line and the body.
func BuildPrompt(req EmailRequest) string {
	who := req.LeadName
	if req.LeadCompany != "" {
		who += " from " + req.LeadCompany
	}

	var task string
	switch EmailType(req.EmailType) {
	case EmailIntroduction:
		task = fmt.Sprintf("Write an introduction email to %s. Introduce our CRM services, keep it concise and close with a clear call to action for a meeting or demo.", who)
	case EmailFollowUp:
		task = fmt.Sprintf("Write a follow-up email to %s about our previous conversation on CRM services. Remind them of our value proposition and suggest next steps.", who)
		if req.LeadStatus != "" {
			task += fmt.Sprintf(" The lead is currently in the %q stage.", req.LeadStatus)
		}
	case EmailProposal:
		task = fmt.Sprintf("Write an email to %s presenting our CRM solution proposal. Highlight key benefits and ROI, and ask to schedule a detailed discussion.", who)
	case EmailClosing:
		task = fmt.Sprintf("Write a closing email to %s to finalize our CRM deal. Address any final concerns and encourage a decision.", who)
	case EmailThankYou:
		task = fmt.Sprintf("Write a thank-you email to %s for their time and interest in our CRM services.", who)
	case EmailMeetingRequest:
		task = fmt.Sprintf("Write an email to %s requesting a short meeting to discuss how our CRM can help them. Propose a couple of time slots.", who)
	case EmailColdOutreach:
		task = fmt.Sprintf("Write a cold outreach email to %s, who has not heard from us before. Open with something relevant to them and keep it brief.", who)
	case EmailCustom:
		task = req.CustomPrompt
		if task == "" {
			task = fmt.Sprintf("Write an email to %s.", who)
		}
	}

	var sb strings.Builder
	sb.WriteString("You are a sales email writer for a CRM company. Write personalized, engaging emails that turn leads into customers.\n\n")
	sb.WriteString(task)
	fmt.Fprintf(&sb, "\n\nUse a %s tone. The recipient's address is %s.", req.Tone, req.LeadEmail)
	if req.Context != "" {
		fmt.Fprintf(&sb, "\nAdditional context: %s", req.Context)
	}
	sb.WriteString("\n\nFormat the response as:\nSubject: [subject line]\n\n[email body]")
	return sb.String()
}

// ParseEmail splits generated text into subject and body. Text without a
// leading "Subject:" line is returned entirely as the body.
func ParseEmail(raw string) (subject, body string) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))

	first, rest, _ := strings.Cut(text, "\n")
	line := strings.TrimSpace(strings.Trim(first, "*#"))
	if len(line) >= len("subject:") && strings.EqualFold(line[:len("subject:")], "subject:") {
		return strings.Trim(line[len("subject:"):], "* "), strings.TrimSpace(rest)
	}
	return "", text
}
