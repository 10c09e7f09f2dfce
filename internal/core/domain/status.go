package domain

// GlobalStatus is the session-wide state shown by navigation UI.
type GlobalStatus struct {
	ReviewCount     int  `json:"review_count"`
	SyncCount       int  `json:"sync_count"`
	IsUploading     bool `json:"is_uploading"`
	ProcessingCount int  `json:"processing_count"`
	TotalProcessing int  `json:"total_processing"`
	IsComplete      bool `json:"is_complete"`
}

// StatusPatch sets only the non-nil fields. Values are absolute, never deltas.
type StatusPatch struct {
	ReviewCount     *int  `json:"review_count,omitempty"`
	SyncCount       *int  `json:"sync_count,omitempty"`
	IsUploading     *bool `json:"is_uploading,omitempty"`
	ProcessingCount *int  `json:"processing_count,omitempty"`
	TotalProcessing *int  `json:"total_processing,omitempty"`
	IsComplete      *bool `json:"is_complete,omitempty"`
}

func (p StatusPatch) Empty() bool {
	return p.ReviewCount == nil && p.SyncCount == nil && p.IsUploading == nil &&
		p.ProcessingCount == nil && p.TotalProcessing == nil && p.IsComplete == nil
}

// Apply returns s with the patch merged in.
func (s GlobalStatus) Apply(p StatusPatch) GlobalStatus {
	if p.ReviewCount != nil {
		s.ReviewCount = *p.ReviewCount
	}
	if p.SyncCount != nil {
		s.SyncCount = *p.SyncCount
	}
	if p.IsUploading != nil {
		s.IsUploading = *p.IsUploading
	}
	if p.ProcessingCount != nil {
		s.ProcessingCount = *p.ProcessingCount
	}
	if p.TotalProcessing != nil {
		s.TotalProcessing = *p.TotalProcessing
	}
	if p.IsComplete != nil {
		s.IsComplete = *p.IsComplete
	}
	return s
}

func Int(v int) *int { return &v }

func Bool(v bool) *bool { return &v }
