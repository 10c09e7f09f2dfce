package domain

import "fmt"

// UploadBatchSize bounds the number of files sent in one multipart request.
const UploadBatchSize = 5

type FileHandle struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path,omitempty"`
}

// SameFile reports whether two handles describe the same selection entry.
func (f FileHandle) SameFile(other FileHandle) bool {
	return f.Name == other.Name && f.Size == other.Size
}

// UploadBatch is an ordered file selection, unique by (name, size).
type UploadBatch struct {
	files []FileHandle
}

// Add appends files that are not already selected and returns how many were dropped.
func (b *UploadBatch) Add(files ...FileHandle) int {
	dropped := 0
	for _, f := range files {
		if b.Contains(f) {
			dropped++
			continue
		}
		b.files = append(b.files, f)
	}
	return dropped
}

func (b *UploadBatch) Contains(f FileHandle) bool {
	for _, existing := range b.files {
		if existing.SameFile(f) {
			return true
		}
	}
	return false
}

func (b *UploadBatch) Remove(index int) error {
	if index < 0 || index >= len(b.files) {
		return WrapError(ErrInvalidInput, "remove file", fmt.Errorf("index %d out of range [0,%d)", index, len(b.files)))
	}
	b.files = append(b.files[:index:index], b.files[index+1:]...)
	return nil
}

func (b *UploadBatch) Files() []FileHandle {
	out := make([]FileHandle, len(b.files))
	copy(out, b.files)
	return out
}

func (b *UploadBatch) Len() int { return len(b.files) }

func (b *UploadBatch) Clear() { b.files = nil }

// Chunks splits the selection into consecutive batches of at most size files.
func (b *UploadBatch) Chunks(size int) [][]FileHandle {
	if size <= 0 {
		size = UploadBatchSize
	}
	files := b.Files()
	chunks := make([][]FileHandle, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		chunks = append(chunks, files[start:end])
	}
	return chunks
}

type TaskStatus string

const (
	TaskProcessing        TaskStatus = "processing"
	TaskDuplicateDetected TaskStatus = "duplicate_detected"
	TaskCompleted         TaskStatus = "completed"
	TaskFailed            TaskStatus = "failed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskProcessing, TaskDuplicateDetected, TaskCompleted, TaskFailed:
		return true
	default:
		return false
	}
}

// Terminal is true for statuses after which the task id is never polled again.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

type TaskProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Remaining never goes below zero even when the backend over-reports processed files.
func (p TaskProgress) Remaining() int {
	if p.Processed >= p.Total {
		return 0
	}
	return p.Total - p.Processed
}

type ProcessingTask struct {
	TaskID     string               `json:"task_id"`
	Status     TaskStatus           `json:"status"`
	Progress   TaskProgress         `json:"progress"`
	Message    string               `json:"message,omitempty"`
	Duplicates []DuplicateCandidate `json:"duplicates,omitempty"`
}

// ExistingInvoice is the persisted record a duplicate collides with.
type ExistingInvoice struct {
	ReceiptNumber string         `json:"receipt_number"`
	Date          string         `json:"date,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	ReceiptLink   string         `json:"receipt_link,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

type DuplicateCandidate struct {
	FileKey         string          `json:"file_key"`
	ImageHash       string          `json:"image_hash,omitempty"`
	ExistingInvoice ExistingInvoice `json:"existing_invoice"`
}

type UploadPhase string

const (
	PhaseIdle              UploadPhase = "idle"
	PhaseUploading         UploadPhase = "uploading"
	PhaseProcessing        UploadPhase = "processing"
	PhaseDuplicateDetected UploadPhase = "duplicate_detected"
	PhaseCompleted         UploadPhase = "completed"
	PhaseFailed            UploadPhase = "failed"
)

// UploadState is the externally visible snapshot of the upload workflow.
type UploadState struct {
	Phase       UploadPhase     `json:"phase"`
	Files       []FileHandle    `json:"files"`
	Progress    int             `json:"progress"`
	Task        *ProcessingTask `json:"task,omitempty"`
	Error       string          `json:"error,omitempty"`
	SkippedKeys []string        `json:"skipped_keys,omitempty"`
}

// DuplicatePrompt describes the sequencer position shown to the user.
type DuplicatePrompt struct {
	Candidate *DuplicateCandidate `json:"candidate,omitempty"`
	Index     int                 `json:"index"`
	Total     int                 `json:"total"`
	Finalized bool                `json:"finalized"`
	Skipped   []string            `json:"skipped,omitempty"`
	Forced    []string            `json:"forced,omitempty"`
}

type DuplicateView struct {
	Candidate DuplicateCandidate `json:"candidate"`
	FileURL   string             `json:"file_url,omitempty"`
}
