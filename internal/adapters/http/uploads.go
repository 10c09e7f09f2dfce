package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

const multipartMemory = 8 << 20

func (rt *Router) getUploadState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.deps.Uploads.State())
}

// addUploadFiles spools every "files" part and adds it to the selection.
func (rt *Router) addUploadFiles(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Spool == nil {
		writeError(w, r, errors.New("upload spool is not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse multipart", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	handles := make([]domain.FileHandle, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, r, fmt.Errorf("open part %s: %w", header.Filename, err))
			return
		}
		path, size, err := rt.deps.Spool.Spool(r.Context(), header.Filename, file)
		_ = file.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
		handles = append(handles, domain.FileHandle{Name: header.Filename, Size: size, Path: path})
	}

	dropped := rt.deps.Uploads.AddFiles(handles...)
	writeJSON(w, http.StatusOK, map[string]any{
		"added":   len(handles) - dropped,
		"dropped": dropped,
		"state":   rt.deps.Uploads.State(),
	})
}

func (rt *Router) removeUploadFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be an integer"})
		return
	}
	if err := rt.deps.Uploads.RemoveFile(index); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.deps.Uploads.State())
}

// runUpload starts the workflow in the background unless wait=true.
func (rt *Router) runUpload(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		writeError(w, r, err)
		return
	}
	wait, err := queryBool(r, "wait")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wait {
		state, err := rt.deps.Uploads.Upload(r.Context(), force)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	state, err := rt.deps.Uploads.StartUpload(context.WithoutCancel(r.Context()), force)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (rt *Router) resumeUpload(w http.ResponseWriter, r *http.Request) {
	wait, err := queryBool(r, "wait")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wait {
		state, err := rt.deps.Uploads.Resume(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := rt.deps.Uploads.Resume(ctx); err != nil {
			slog.Warn("upload_resume_failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, rt.deps.Uploads.State())
}

func (rt *Router) currentDuplicate(w http.ResponseWriter, r *http.Request) {
	prompt, err := rt.deps.Duplicates.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// The last decision finalizes the sequence and may wait on forced processing,
// so decisions outlive a client that disconnects.
func (rt *Router) skipDuplicate(w http.ResponseWriter, r *http.Request) {
	prompt, err := rt.deps.Duplicates.Skip(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (rt *Router) uploadDuplicateAnyway(w http.ResponseWriter, r *http.Request) {
	prompt, err := rt.deps.Duplicates.UploadAnyway(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (rt *Router) viewDuplicate(w http.ResponseWriter, r *http.Request) {
	view, err := rt.deps.Duplicates.ViewExisting(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("%s must be a boolean", name))
	}
	return v, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("%s must be an integer", name))
	}
	return v, nil
}
