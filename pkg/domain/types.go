package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fixed placeholder texts surfaced in place of computed content.
const (
	SummaryPending = "Not yet summarized."
	SummaryNoText  = "No text to summarize."
	RefusalAnswer  = "This information is not available in the uploaded documents."
)

// Document is an uploaded file held for the lifetime of one session.
type Document struct {
	Filename    string    `json:"filename"`
	Text        string    `json:"-"`
	Summary     string    `json:"summary"`
	UploadedBy  string    `json:"uploadedBy"`
	StoragePath string    `json:"storagePath"`
	ObjectKey   string    `json:"objectKey,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	TextRunes   int       `json:"textRunes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginRecord holds the latest login of one identity.
type LoginRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	LoginTime time.Time `json:"loginTime"`
}

// UploadRecord is appended once per successful, non-duplicate upload.
type UploadRecord struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Filename   string         `json:"filename"`
	FilePath   string         `json:"filePath"`
	UploadTime time.Time      `json:"uploadTime"`
	Metadata   UploadMetadata `json:"metadata"`
}

type UploadMetadata struct {
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	ObjectKey   string `json:"objectKey,omitempty"`
}
