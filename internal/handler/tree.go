package handler

import (
	"context"
	"log/slog"
	"net/http"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/services"
	"cumulus/internal/httputil"
)

// maxUploadBytes bounds multipart file uploads.
const maxUploadBytes = 512 << 20

// TreeHandler handles tree mutation HTTP requests
type TreeHandler struct {
	tree   services.TreeMutator
	logger *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(tree services.TreeMutator, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{tree: tree, logger: logger}
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *TreeHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)

	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.tree.CreateFolder(r.Context(), caller, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// CreateDocument creates a new document-bodied file
// POST /api/documents
func (h *TreeHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)

	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.tree.CreateDocument(r.Context(), caller, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// UploadFile creates a new byte-backed file from a multipart form.
// POST /api/files
// Form fields: file (required), parent_id (optional).
func (h *TreeHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file form field is required")
		return
	}
	defer file.Close()

	req := services.CreateFileRequest{
		Title:    header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}
	if parentID := r.FormValue("parent_id"); parentID != "" {
		req.ParentID = &parentID
	}

	entity, err := h.tree.CreateFile(r.Context(), caller, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entity)
}

// Rename changes the entity title
// POST /api/entities/{id}/rename
func (h *TreeHandler) Rename(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entity, err := h.tree.Rename(r.Context(), caller, id, req.Title)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entity)
}

// Move reparents the entity
// POST /api/entities/{id}/move
func (h *TreeHandler) Move(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		NewParentID *string `json:"new_parent_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entity, err := h.tree.Move(r.Context(), caller, id, req.NewParentID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entity)
}

// Copy duplicates the entity, recursively for folders
// POST /api/entities/{id}/copy
func (h *TreeHandler) Copy(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		NewParentID *string `json:"new_parent_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newID, err := h.tree.Copy(r.Context(), caller, id, req.NewParentID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"id": newID})
}

// Trash soft-deletes the entity
// POST /api/entities/{id}/trash
func (h *TreeHandler) Trash(w http.ResponseWriter, r *http.Request) {
	h.flagFlip(w, r, h.tree.Trash)
}

// Restore undoes a trash
// POST /api/entities/{id}/restore
func (h *TreeHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.flagFlip(w, r, h.tree.Restore)
}

// Delete hard-deletes the entity and its subtree
// DELETE /api/entities/{id}
func (h *TreeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.flagFlip(w, r, h.tree.Delete)
}

// ChangeColor sets a folder's display color
// POST /api/entities/{id}/color
func (h *TreeHandler) ChangeColor(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Color string `json:"color"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tree.ChangeColor(r.Context(), caller, id, req.Color); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleAllowComments flips commenting, recursively for folders
// POST /api/entities/{id}/allow-comments
func (h *TreeHandler) ToggleAllowComments(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.tree.ToggleAllowComments)
}

// ToggleAllowDownload flips downloads, recursively for folders
// POST /api/entities/{id}/allow-download
func (h *TreeHandler) ToggleAllowDownload(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.tree.ToggleAllowDownload)
}

// flagFlip runs an (id)-shaped mutation and responds 204.
func (h *TreeHandler) flagFlip(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, caller models.Caller, entityID string) error) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), caller, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toggle runs an (id, bool)-shaped mutation and responds 204.
func (h *TreeHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, caller models.Caller, entityID string, allow bool) error) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Allow bool `json:"allow"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := fn(r.Context(), caller, id, req.Allow); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
