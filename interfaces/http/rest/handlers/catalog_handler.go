package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"deployboard/application/commands"
	"deployboard/interfaces/http/rest/api"
)

// CatalogHandler serves the sidebar.
type CatalogHandler struct {
	commands CommandSender
	reader   WorkspaceReader
	logger   *zap.Logger
}

func NewCatalogHandler(commands CommandSender, reader WorkspaceReader, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{commands: commands, reader: reader, logger: logger}
}

// List handles GET /catalog
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"categories":        h.reader.Sidebar(),
		"searchPlaceholder": h.reader.SearchPlaceholder(),
	})
}

// Search handles GET /catalog/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"query":      q,
		"categories": h.reader.Search(q),
	})
}

// Toggle handles POST /catalog/{categoryID}/toggle
func (h *CatalogHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.ToggleCategoryCommand{CategoryID: chi.URLParam(r, "categoryID")}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"categoryId": cmd.CategoryID,
		"expanded":   cmd.Expanded,
	})
}

// Payload handles GET /catalog/{categoryID}/items/{moduleID}/payload and
// returns the drag payload a client attaches to a drag.
func (h *CatalogHandler) Payload(w http.ResponseWriter, r *http.Request) {
	data, err := h.reader.DragPayload(chi.URLParam(r, "categoryID"), chi.URLParam(r, "moduleID"))
	if err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]string{"payload": string(data)})
}

// Click handles POST /catalog/{categoryID}/items/{moduleID}/click
func (h *CatalogHandler) Click(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.ClickPlaceModuleCommand{
		CategoryID: chi.URLParam(r, "categoryID"),
		ModuleID:   chi.URLParam(r, "moduleID"),
	}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	sec, err := h.reader.Section(cmd.CategoryID)
	if err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, sec)
}
