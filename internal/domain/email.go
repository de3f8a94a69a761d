package domain

// EmailRequest is a transient request to relay one notification email.
// Pointer fields distinguish an absent key (nil) from an empty string.
type EmailRequest struct {
	// ToEmail is the recipient address, sent on the wire as "email".
	ToEmail    *string `json:"email"                 example:"jane@x.com"`
	Subject    *string `json:"subject"               example:"Case update"`
	Message    *string `json:"message"               example:"Your hearing is scheduled for Monday."`
	ClientName *string `json:"client_name,omitempty" example:"Jane Doe"`
}

// EmailResult reports the outcome of a relay attempt. It is never persisted.
//
// On success StatusCode holds the provider's HTTP status; on failure Error
// holds the provider error's text.
type EmailResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}
