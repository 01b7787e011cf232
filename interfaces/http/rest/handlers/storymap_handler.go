package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/application/commands"
	"github.com/T3thr/Vertex-webapp-001-sub006/application/queries"
	"github.com/T3thr/Vertex-webapp-001-sub006/domain/storymap"
	"github.com/T3thr/Vertex-webapp-001-sub006/pkg/auth"
	"github.com/T3thr/Vertex-webapp-001-sub006/pkg/common"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// StoryMapHandler serves the story map engine endpoints. It owns the wire
// shapes; the application handlers stay transport-agnostic.
type StoryMapHandler struct {
	applyHandler       *commands.ApplyCommandHandler
	createHandler      *commands.CreateDocumentHandler
	getHandler         *queries.GetStoryMapHandler
	getDocumentHandler *queries.GetDocumentHandler
	validateHandler    *queries.ValidateGraphHandler
	validate           *validator.Validate
	maxBodyBytes       int64
	logger             *zap.Logger
}

// NewStoryMapHandler creates a new handler instance
func NewStoryMapHandler(
	applyHandler *commands.ApplyCommandHandler,
	createHandler *commands.CreateDocumentHandler,
	getHandler *queries.GetStoryMapHandler,
	getDocumentHandler *queries.GetDocumentHandler,
	validateHandler *queries.ValidateGraphHandler,
	maxBodyBytes int64,
	logger *zap.Logger,
) *StoryMapHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 4 << 20
	}
	return &StoryMapHandler{
		applyHandler:       applyHandler,
		createHandler:      createHandler,
		getHandler:         getHandler,
		getDocumentHandler: getDocumentHandler,
		validateHandler:    validateHandler,
		validate:           validator.New(),
		maxBodyBytes:       maxBodyBytes,
		logger:             logger,
	}
}

// applyCommandRequest is the edit request body. ETag is the version the
// client last saw; omitting it requests an unconditional write, which only
// system callers may do.
type applyCommandRequest struct {
	Command storymap.Command `json:"command"`
	ETag    string           `json:"etag,omitempty"`

	// LastSyncedAt is accepted for compatibility with clients that echo the
	// sync timestamp alongside the etag; the version token is the etag.
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

// ApplyCommand handles POST /api/v1/novels/{novelID}/storymap/commands
func (h *StoryMapHandler) ApplyCommand(w http.ResponseWriter, r *http.Request) {
	novelID := chi.URLParam(r, "novelID")
	if novelID == "" {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument, "novelID is required")
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req applyCommandRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeMalformedCommand, "invalid request body: "+err.Error())
		return
	}
	if req.Command.CommandID == "" {
		req.Command.CommandID = r.Header.Get("X-Command-ID")
	}

	// The engine trusts only the identity resolved by the auth layer, never
	// one the client writes into the command.
	req.Command.IssuedByUserID = user.UserID

	if err := h.validate.Struct(&req.Command); err != nil {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeMalformedCommand, err.Error())
		return
	}

	if req.ETag == "" {
		// Header fallback, matching how the fetch endpoint hands the etag out.
		req.ETag = r.Header.Get("If-Match")
	}

	var callerVersion *int
	if req.ETag != "" {
		version, err := commands.ParseVersionETag(req.ETag)
		if err != nil {
			common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument, err.Error())
			return
		}
		callerVersion = &version
	} else if !user.IsSystem() {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument,
			"etag is required; unconditional writes are reserved for system callers")
		return
	}

	result, err := h.applyHandler.Handle(r.Context(), commands.ApplyStoryMapCommand{
		NovelID:       novelID,
		Command:       req.Command,
		CallerVersion: callerVersion,
	})
	if err != nil {
		h.respondApplyError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success": true,
		"version": result.Version,
		"etag":    result.ETag,
	}
	if result.AlreadyProcessed {
		response["alreadyProcessed"] = true
	}

	w.Header().Set("ETag", result.ETag)
	common.RespondJSON(w, http.StatusOK, response)
}

// respondApplyError maps write-path failures to the edit response contract.
// A version conflict is a distinct shape carrying the version the client must
// reload to.
func (h *StoryMapHandler) respondApplyError(w http.ResponseWriter, r *http.Request, err error) {
	if conflict, ok := err.(*storymap.VersionConflictError); ok {
		common.RespondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":          "Version conflict",
			"currentVersion": conflict.CurrentVersion,
		})
		return
	}

	if appErr := apperrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if appErr.Type == apperrors.ErrorTypeConflict && appErr.Code == apperrors.CodeVersionConflict {
			common.RespondJSON(w, http.StatusConflict, map[string]interface{}{
				"error":          "Version conflict",
				"currentVersion": appErr.Details["currentVersion"],
			})
			return
		}
		common.RespondError(w, status, appErr.Code, appErr.Message)
		return
	}

	h.logger.Error("apply command failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
	)
	common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

// validateRequest is the validation request body; the graph does not need to
// be persisted.
type validateRequest struct {
	Nodes       []storymap.GraphNode `json:"nodes"`
	Edges       []storymap.GraphEdge `json:"edges"`
	StartNodeID string               `json:"startNodeId,omitempty"`
}

// ValidateGraph handles POST /api/v1/storymap/validate
func (h *StoryMapHandler) ValidateGraph(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := common.ParseJSONBody(r, &req, h.maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument, "invalid request body: "+err.Error())
		return
	}

	report, err := h.validateHandler.Handle(r.Context(), queries.ValidateGraphQuery{
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		StartNodeID: req.StartNodeID,
	})
	if err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil {
			common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
			return
		}
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"summary":  report.Summary,
		"problems": report.Problems,
	})
}

// GetStoryMap handles GET /api/v1/novels/{novelID}/storymap.
//
// A novel with no document yet gets one provisioned on first fetch, so the
// editor always opens onto a working document.
func (h *StoryMapHandler) GetStoryMap(w http.ResponseWriter, r *http.Request) {
	novelID := chi.URLParam(r, "novelID")
	if novelID == "" {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument, "novelID is required")
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	doc, err := h.getHandler.Handle(r.Context(), queries.GetStoryMapQuery{NovelID: novelID})
	if err != nil {
		if apperrors.IsNotFound(err) {
			doc, err = h.createHandler.Handle(r.Context(), commands.CreateDocumentCommand{
				NovelID: novelID,
				UserID:  user.UserID,
			})
		}
		if err != nil {
			if appErr := apperrors.GetAppError(err); appErr != nil {
				common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
				return
			}
			h.logger.Error("get story map failed", zap.Error(err), zap.String("novelID", novelID))
			common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
	}

	w.Header().Set("ETag", commands.FormatVersionETag(doc.Version))
	common.RespondJSON(w, http.StatusOK, doc)
}

// GetDocumentByID handles GET /api/v1/storymap/documents/{documentID}.
// Event consumers hold a documentId, not a novelId; this is their lookup path.
func (h *StoryMapHandler) GetDocumentByID(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		common.RespondError(w, http.StatusBadRequest, apperrors.CodeInvalidArgument, "documentID is required")
		return
	}

	if _, err := auth.GetUserFromContext(r.Context()); err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	doc, err := h.getDocumentHandler.Handle(r.Context(), queries.GetDocumentQuery{DocumentID: documentID})
	if err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil {
			common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
			return
		}
		h.logger.Error("get document failed", zap.Error(err), zap.String("documentID", documentID))
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("ETag", commands.FormatVersionETag(doc.Version))
	common.RespondJSON(w, http.StatusOK, doc)
}
