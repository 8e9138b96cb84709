package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func validRequest() EmailRequest {
	return EmailRequest{
		LeadName:    "Jane Doe",
		LeadCompany: "Acme",
		LeadEmail:   "jane@acme.com",
		EmailType:   "introduction",
	}
}

func TestGenerateEmail_Success(t *testing.T) {
	gen := &fakeGenerator{reply: "Subject: Hello from CRM\n\nHi Jane,\n\nLet's talk."}
	svc := NewService(gen)

	email, err := svc.GenerateEmail(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hello from CRM", email.Subject)
	assert.Equal(t, "Hi Jane,\n\nLet's talk.", email.Body)
	assert.Equal(t, gen.reply, email.Raw)
	assert.Contains(t, gen.prompt, "Jane Doe from Acme")
	assert.Contains(t, gen.prompt, "professional tone")
	assert.Contains(t, gen.prompt, "Subject: [subject line]")
}

func TestGenerateEmail_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EmailRequest)
	}{
		{"missing name", func(r *EmailRequest) { r.LeadName = "  " }},
		{"missing email", func(r *EmailRequest) { r.LeadEmail = "" }},
		{"missing type", func(r *EmailRequest) { r.EmailType = "" }},
		{"bad email", func(r *EmailRequest) { r.LeadEmail = "nope" }},
		{"unknown type", func(r *EmailRequest) { r.EmailType = "spam" }},
		{"unknown tone", func(r *EmailRequest) { r.Tone = "angry" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: "Subject: x\n\ny"}
			req := validRequest()
			tt.mutate(&req)

			_, err := NewService(gen).GenerateEmail(context.Background(), req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Empty(t, gen.prompt, "generator must not be called")
		})
	}
}

func TestGenerateEmail_UpstreamErrors(t *testing.T) {
	t.Run("invalid key passes through", func(t *testing.T) {
		gen := &fakeGenerator{err: fmt.Errorf("%w: boom", ErrInvalidAPIKey)}
		_, err := NewService(gen).GenerateEmail(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrInvalidAPIKey)
	})

	t.Run("other failure is wrapped", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("quota exceeded")}
		_, err := NewService(gen).GenerateEmail(context.Background(), validRequest())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidAPIKey)
	})
}

func TestBuildPrompt(t *testing.T) {
	req := validRequest()
	req.EmailType = "follow-up"
	req.LeadStatus = "qualified"
	req.Tone = "friendly"
	req.Context = "Met at the expo"

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "follow-up email to Jane Doe from Acme")
	assert.Contains(t, prompt, `"qualified" stage`)
	assert.Contains(t, prompt, "friendly tone")
	assert.Contains(t, prompt, "Additional context: Met at the expo")

	req.EmailType = "custom"
	req.CustomPrompt = "Invite them to our webinar."
	assert.Contains(t, BuildPrompt(req), "Invite them to our webinar.")

	req.CustomPrompt = ""
	assert.Contains(t, BuildPrompt(req), "Write an email to Jane Doe from Acme.")

	for _, et := range EmailTypes {
		req.EmailType = string(et)
		assert.Contains(t, BuildPrompt(req), "Jane Doe", et)
	}
}

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		subject string
		body    string
	}{
		{"plain", "Subject: Hi\n\nBody here", "Hi", "Body here"},
		{"markdown bold", "**Subject:** Quick question\n\nBody", "Quick question", "Body"},
		{"lowercase", "subject: lower\r\n\r\nbody", "lower", "body"},
		{"no subject", "Just a body\nwith lines", "", "Just a body\nwith lines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := ParseEmail(tt.raw)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(&googleapi.Error{Code: 400, Message: "bad"}), ErrInvalidAPIKey)
	assert.ErrorIs(t, classify(errors.New("API key not valid")), ErrInvalidAPIKey)
	assert.NotErrorIs(t, classify(&googleapi.Error{Code: 503}), ErrInvalidAPIKey)
	assert.NotErrorIs(t, classify(errors.New("timeout")), ErrInvalidAPIKey)
}

func TestGeminiGenerator_MissingKey(t *testing.T) {
	_, err := NewGeminiGenerator("", "").Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}
