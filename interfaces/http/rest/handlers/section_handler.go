package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"deployboard/application/commands"
	"deployboard/domain/core/valueobjects"
	"deployboard/interfaces/http/rest/api"
)

// SectionHandler serves the placement sections.
type SectionHandler struct {
	commands CommandSender
	reader   WorkspaceReader
	logger   *zap.Logger
}

func NewSectionHandler(commands CommandSender, reader WorkspaceReader, logger *zap.Logger) *SectionHandler {
	return &SectionHandler{commands: commands, reader: reader, logger: logger}
}

// DropRequest is the body of a drop. Payload is the raw drag payload text.
type DropRequest struct {
	Payload  string                `json:"payload"`
	Position valueobjects.Position `json:"position"`
}

// List handles GET /sections
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"sections": h.reader.Sections()})
}

// Get handles GET /sections/{sectionID}
func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sec, err := h.reader.Section(chi.URLParam(r, "sectionID"))
	if err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, sec)
}

// Drop handles POST /sections/{sectionID}/drop. An unreadable payload is
// ignored and answered with placed=false.
func (h *SectionHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := api.Decode(r, &req, false); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	cmd := &commands.DropModuleCommand{
		SectionID: chi.URLParam(r, "sectionID"),
		Payload:   req.Payload,
		Position:  req.Position,
	}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if cmd.Placed {
		status = http.StatusCreated
	}
	sec, err := h.reader.Section(cmd.SectionID)
	if err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, status, map[string]interface{}{"placed": cmd.Placed, "section": sec})
}

// Remove handles DELETE /sections/{sectionID}/modules/{moduleID}
func (h *SectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.RemoveModuleCommand{
		SectionID: chi.URLParam(r, "sectionID"),
		ModuleID:  chi.URLParam(r, "moduleID"),
	}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /sections/{sectionID}/modules/{moduleID}/select
func (h *SectionHandler) Select(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.SelectModuleCommand{
		SectionID: chi.URLParam(r, "sectionID"),
		ModuleID:  chi.URLParam(r, "moduleID"),
	}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	respondSelection(w, h.reader)
}
