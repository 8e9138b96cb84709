package dto

type GenerateEmailRequest struct {
	LeadName     string `json:"leadName"`
	LeadCompany  string `json:"leadCompany"`
	LeadEmail    string `json:"leadEmail"`
	EmailType    string `json:"emailType"`
	Context      string `json:"context"`
	Tone         string `json:"tone"`
	LeadStatus   string `json:"leadStatus"`
	CustomPrompt string `json:"customPrompt"`
}

type GenerateEmailResponse struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
