package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"deployboard/application/commands"
	"deployboard/application/configs"
	"deployboard/application/ports"
	"deployboard/application/selection"
	"deployboard/domain/core/entities"
	"deployboard/interfaces/http/rest/api"
)

// SelectionResponse is the detail panel. Selection and Detail are absent
// when nothing is selected.
type SelectionResponse struct {
	Selected  bool                `json:"selected"`
	Selection *entities.Selection `json:"selection,omitempty"`
	Detail    *selection.Detail   `json:"detail,omitempty"`
}

func respondSelection(w http.ResponseWriter, reader WorkspaceReader) {
	sel, detail, ok := reader.Selection()
	if !ok {
		api.RespondJSON(w, http.StatusOK, SelectionResponse{})
		return
	}
	api.RespondJSON(w, http.StatusOK, SelectionResponse{Selected: true, Selection: &sel, Detail: &detail})
}

// PanelHandler serves the detail panel, notices and the configuration
// dialog.
type PanelHandler struct {
	commands CommandSender
	reader   WorkspaceReader
	configs  ConfigLister
	logger   *zap.Logger
}

func NewPanelHandler(commands CommandSender, reader WorkspaceReader, cfgs ConfigLister, logger *zap.Logger) *PanelHandler {
	return &PanelHandler{commands: commands, reader: reader, configs: cfgs, logger: logger}
}

// Selection handles GET /selection
func (h *PanelHandler) Selection(w http.ResponseWriter, r *http.Request) {
	respondSelection(w, h.reader)
}

// ClearSelection handles DELETE /selection
func (h *PanelHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.commands.Send(r.Context(), &commands.ClearSelectionCommand{}); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications handles GET /notifications and drains pending notices.
func (h *PanelHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notices := h.reader.DrainNotices()
	if notices == nil {
		notices = []ports.Notice{}
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"notices": notices})
}

// CreateConfig handles POST /configs
func (h *PanelHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req configs.CreateRequest
	if err := api.Decode(r, &req, false); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	cmd := &commands.CreateConfigCommand{Request: req}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, cmd.Draft)
}

// ListConfigs handles GET /configs
func (h *PanelHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"configs":   h.configs.List(),
		"platforms": configs.Platforms,
	})
}

// Reset handles POST /workspace/reset
func (h *PanelHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.commands.Send(r.Context(), &commands.ResetWorkspaceCommand{}); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
