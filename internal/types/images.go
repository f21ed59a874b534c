package types

// GenerateRequest is the inbound generation request. Field aliases cover the
// JSON, form and query shapes callers already use.
type GenerateRequest struct {
	// Required: provider credential, passed through untouched
	APIKey    string `json:"apiKey,omitempty"`
	APIKeyAlt string `json:"apikey,omitempty"`

	// Required: text instruction
	Prompt string `json:"prompt,omitempty"`
	Text   string `json:"text,omitempty"`

	// Optional: URL of a reference image for image-to-image
	Reference         string `json:"reference,omitempty"`
	ReferenceImageURL string `json:"reference_image_url,omitempty"`
}

// Credential returns whichever credential field was supplied.
func (r *GenerateRequest) Credential() string {
	if r.APIKey != "" {
		return r.APIKey
	}
	return r.APIKeyAlt
}

// PromptText returns whichever prompt field was supplied.
func (r *GenerateRequest) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return r.Text
}

// ReferenceURL returns whichever reference field was supplied.
func (r *GenerateRequest) ReferenceURL() string {
	if r.Reference != "" {
		return r.Reference
	}
	return r.ReferenceImageURL
}

// ImageURLResponse is returned in url mode.
type ImageURLResponse struct {
	Image string `json:"image"`
}

// ImageKeyResponse is returned in key mode.
type ImageKeyResponse struct {
	Key   string `json:"key"`
	Image string `json:"image"`
}

// ImageDataURIResponse is returned in datauri mode.
type ImageDataURIResponse struct {
	ImageURL string `json:"image_url"`
	Message  string `json:"message,omitempty"`
}
