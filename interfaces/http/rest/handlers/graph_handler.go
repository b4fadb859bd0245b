package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"deployboard/application/commands"
	"deployboard/domain/core/entities"
	"deployboard/interfaces/http/rest/api"
)

// GraphHandler serves the canvas.
type GraphHandler struct {
	commands CommandSender
	reader   WorkspaceReader
	logger   *zap.Logger
}

func NewGraphHandler(commands CommandSender, reader WorkspaceReader, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{commands: commands, reader: reader, logger: logger}
}

// GraphResponse is the canvas state.
type GraphResponse struct {
	Nodes []entities.GraphNode `json:"nodes"`
	Edges []entities.GraphEdge `json:"edges"`
}

// Get handles GET /graph
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.reader.Graph()
	if nodes == nil {
		nodes = []entities.GraphNode{}
	}
	if edges == nil {
		edges = []entities.GraphEdge{}
	}
	api.RespondJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Edges: edges})
}

// Connect handles POST /graph/edges
func (h *GraphHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ConnectNodesCommand
	if err := api.Decode(r, &cmd, false); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	if err := h.commands.Send(r.Context(), &cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	api.RespondJSON(w, http.StatusCreated, cmd.Edge)
}

// SelectNode handles POST /graph/nodes/{nodeID}/select
func (h *GraphHandler) SelectNode(w http.ResponseWriter, r *http.Request) {
	cmd := &commands.SelectNodeCommand{NodeID: chi.URLParam(r, "nodeID")}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		api.RespondError(w, h.logger, err)
		return
	}
	respondSelection(w, h.reader)
}
