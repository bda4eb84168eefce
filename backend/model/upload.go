package model

// DocumentStatus is the parse state of an uploaded document as reported
// by the workflow service.
type DocumentStatus string

const (
	DocProcessing DocumentStatus = "processing"
	DocReady      DocumentStatus = "ready"
	DocFailed     DocumentStatus = "failed"
)

// UploadedDocument is the slice of intake state owned by the upload
// pipeline: the remote contract id, its parse status and the name of the
// file the user picked.
type UploadedDocument struct {
	ContractID string         `json:"contract_id"`
	Status     DocumentStatus `json:"status"`
	FileName   string         `json:"file_name"`
}

// UploadJob tracks one submitted document through the poll loop.
// It is created after a successful submission and mutated only by the
// loop that owns it.
type UploadJob struct {
	ContractID   string         `json:"contract_id"`
	Status       DocumentStatus `json:"status"`
	PollAttempts int            `json:"poll_attempts"`
}
