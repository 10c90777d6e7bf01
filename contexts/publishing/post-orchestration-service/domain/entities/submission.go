package entities

type SubmissionType string

const (
	SubmissionTypeFile    SubmissionType = "FILE"
	SubmissionTypeMessage SubmissionType = "MESSAGE"
)

// Submission is read from the submission collaborator; the engine never mutates it.
type Submission struct {
	ID      string
	Type    SubmissionType
	Title   string
	Options []WebsiteOption
	Files   []SubmissionFile
}

// WebsiteOption binds a submission to one destination account, in attachment order.
type WebsiteOption struct {
	AccountID string
	Data      map[string]any
}

type SubmissionFile struct {
	ID       string
	FileName string
	MimeType string
	Width    int
	Height   int
	Size     int64
}

type Account struct {
	ID       string
	Website  string
	LoggedIn bool
}

// PostData is the snapshot handed to a destination adapter.
type PostData struct {
	SubmissionID string         `json:"submission_id"`
	AccountID    string         `json:"account_id"`
	Website      string         `json:"website"`
	Title        string         `json:"title,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
	SourceURLs   []string       `json:"source_urls,omitempty"`
}

type PostResponse struct {
	SourceURL      string         `json:"source_url,omitempty"`
	Errors         []string       `json:"errors,omitempty"`
	Message        string         `json:"message,omitempty"`
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

// ResizeRequest is returned by destinations that need files reshaped before upload.
type ResizeRequest struct {
	MaxWidth  int
	MaxHeight int
	MaxBytes  int64
}
