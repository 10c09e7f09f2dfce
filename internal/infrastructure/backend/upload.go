package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

type uploadResponse struct {
	UploadedFiles []string `json:"uploaded_files"`
}

type processRequest struct {
	FileKeys    []string `json:"file_keys"`
	ForceUpload bool     `json:"force_upload"`
}

type processResponse struct {
	TaskID string `json:"task_id"`
}

type processStatusResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress struct {
		Total     int `json:"total"`
		Processed int `json:"processed"`
		Failed    int `json:"failed"`
	} `json:"progress"`
	Duplicates []duplicatePayload `json:"duplicates"`
}

type duplicatePayload struct {
	FileKey         string         `json:"file_key"`
	ImageHash       string         `json:"image_hash"`
	ExistingInvoice map[string]any `json:"existing_invoice"`
}

// UploadFiles sends one multipart batch under the "files" field and returns the stored keys.
func (c *Client) UploadFiles(ctx context.Context, files []domain.FileHandle, progress ports.UploadProgressFunc) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload files", errors.New("empty batch"))
	}

	body, contentType, err := buildMultipart(files)
	if err != nil {
		return nil, err
	}
	reader := &progressReader{r: bytes.NewReader(body), total: int64(len(body)), fn: progress}

	resp, err := c.send(ctx, call{
		method:      http.MethodPost,
		path:        "/api/upload/files",
		body:        reader,
		contentType: contentType,
		length:      int64(len(body)),
		operation:   "upload_files",
		upload:      true,
	})
	if err != nil {
		return nil, mapBackendError("upload files", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := decodeJSON(resp.Body, &out, "upload_files"); err != nil {
		return nil, err
	}
	return out.UploadedFiles, nil
}

func (c *Client) ProcessInvoices(ctx context.Context, fileKeys []string, forceUpload bool) (string, error) {
	if len(fileKeys) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "process invoices", errors.New("no file keys"))
	}
	var out processResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/upload/process", processRequest{FileKeys: fileKeys, ForceUpload: forceUpload}, &out, "process_invoices"); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("process invoices: empty task id")
	}
	return out.TaskID, nil
}

// GetProcessStatus fails with ErrTaskGone once the backend no longer knows the task.
func (c *Client) GetProcessStatus(ctx context.Context, taskID string) (*domain.ProcessingTask, error) {
	segment, err := pathParam("task_id", taskID)
	if err != nil {
		return nil, err
	}

	var out processStatusResponse
	if err := c.getJSON(ctx, "/api/upload/process/status/"+segment, nil, &out, "process_status"); err != nil {
		return nil, err
	}

	status := domain.TaskStatus(out.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("get process status: unknown task status %q", out.Status)
	}
	task := &domain.ProcessingTask{
		TaskID:  taskID,
		Status:  status,
		Message: out.Message,
		Progress: domain.TaskProgress{
			Total:     out.Progress.Total,
			Processed: out.Progress.Processed,
			Failed:    out.Progress.Failed,
		},
	}
	for _, d := range out.Duplicates {
		task.Duplicates = append(task.Duplicates, domain.DuplicateCandidate{
			FileKey:         d.FileKey,
			ImageHash:       d.ImageHash,
			ExistingInvoice: existingInvoice(d.ExistingInvoice),
		})
	}
	return task, nil
}

func (c *Client) GetFileURL(ctx context.Context, fileKey string) (string, error) {
	segment, err := pathParam("file_key", fileKey)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/api/upload/files/view/"+segment, nil, &out, "file_url"); err != nil {
		return "", err
	}
	return out.URL, nil
}

func existingInvoice(fields map[string]any) domain.ExistingInvoice {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := fields[k]; ok && v != nil {
				return fmt.Sprint(v)
			}
		}
		return ""
	}
	return domain.ExistingInvoice{
		ReceiptNumber: str("receipt_number", "Receipt Number"),
		Date:          str("date", "Date"),
		CustomerName:  str("customer_name", "Customer Name"),
		ReceiptLink:   str("receipt_link", "Receipt Link"),
		Fields:        fields,
	}
}

func buildMultipart(files []domain.FileHandle) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		if err := appendFilePart(writer, f); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func appendFilePart(writer *multipart.Writer, f domain.FileHandle) error {
	if f.Path == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload files", fmt.Errorf("file %s has no path", f.Name))
	}
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()

	contentType := mime.TypeByExtension(filepath.Ext(f.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", f.Name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	return nil
}

// progressReader reports bytes handed to the transport.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    ports.UploadProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
