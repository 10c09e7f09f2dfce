package domain

import "sync"

type ColumnDef struct {
	DBColumn string `json:"db_column"`
	Label    string `json:"label"`
	Type     string `json:"type,omitempty"`
	Editable bool   `json:"editable,omitempty"`
}

type UserConfig struct {
	Username     string                 `json:"username"`
	Industry     string                 `json:"industry"`
	Bucket       string                 `json:"r2_bucket,omitempty"`
	DashboardURL string                 `json:"dashboard_url,omitempty"`
	Columns      map[string][]ColumnDef `json:"columns,omitempty"`
}

// ColumnLabels flattens every column group into db_column -> label.
func (c UserConfig) ColumnLabels() map[string]string {
	out := make(map[string]string)
	for _, group := range c.Columns {
		for _, col := range group {
			if col.DBColumn != "" && col.Label != "" {
				out[col.DBColumn] = col.Label
			}
		}
	}
	return out
}

var defaultColumnLabels = map[string]string{
	"row_id":              "Row_Id",
	"receipt_number":      "Receipt Number",
	"date":                "Date",
	"customer_name":       "Customer Name",
	"mobile_number":       "Mobile Number",
	"car_number":          "Car Number",
	"patient_name":        "Patient Name",
	"odometer":            "Odometer",
	"description":         "Description",
	"type":                "Type",
	"quantity":            "Quantity",
	"rate":                "Rate",
	"amount":              "Amount",
	"total_bill_amount":   "Total Bill Amount",
	"receipt_link":        "Receipt Link",
	"upload_date":         "Upload Date",
	"review_status":       "Review Status",
	"calculated_amount":   "Calculated Amount",
	"amount_mismatch":     "Amount Mismatch",
	"confidence":          "Confidence",
	"image_hash":          "Image Hash",
	"verification_status": "Verification Status",
	"audit_findings":      "Audit Findings",
	"username":            "Username",
	"created_at":          "Created At",
	"updated_at":          "Updated At",
}

// ColumnMapping translates between backend snake_case columns and display labels.
type ColumnMapping struct {
	mu      sync.RWMutex
	toLabel map[string]string
	toDB    map[string]string
}

func NewColumnMapping() *ColumnMapping {
	m := &ColumnMapping{
		toLabel: make(map[string]string, len(defaultColumnLabels)),
		toDB:    make(map[string]string, len(defaultColumnLabels)),
	}
	m.Add(defaultColumnLabels)
	return m
}

func (m *ColumnMapping) Add(labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for db, label := range labels {
		m.toLabel[db] = label
		m.toDB[label] = db
	}
}

// ToDisplay renames known keys; unknown keys pass through.
func (m *ColumnMapping) ToDisplay(row map[string]any) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(row))
	for k, v := range row {
		if label, ok := m.toLabel[k]; ok {
			out[label] = v
			continue
		}
		out[k] = v
	}
	return out
}

func (m *ColumnMapping) ToBackend(row map[string]any) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(row))
	for k, v := range row {
		if db, ok := m.toDB[k]; ok {
			out[db] = v
			continue
		}
		out[k] = v
	}
	return out
}
