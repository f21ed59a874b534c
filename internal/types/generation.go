package types

// GenerationRequest is one validated inbound call. It is never persisted.
type GenerationRequest struct {
	RequestID    string
	Prompt       string
	ReferenceURL string
	Credential   string
}

// ReferenceImage is a fetched reference, owned by the request that fetched it.
type ReferenceImage struct {
	Data      []byte
	MediaType string
}

// SourceEncodingBase64 is the only encoding the extractor decodes.
const SourceEncodingBase64 = "base64"

// ExtractedImage is the decoded image payload found in a provider response.
type ExtractedImage struct {
	Data           []byte
	MediaType      string
	SourceEncoding string

	// Strategy names the extraction strategy that matched.
	Strategy string

	// NearThreshold marks fallback matches close to the minimum run length.
	NearThreshold bool
}

// GenerationResult is what the pipeline hands to delivery. Key is empty
// when the deployment does not persist images.
type GenerationResult struct {
	RequestID string
	Data      []byte
	MediaType string
	Key       string
	Strategy  string
}
