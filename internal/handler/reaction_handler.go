package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/plume-sante/community-backend/internal/middleware"
	"github.com/plume-sante/community-backend/internal/service"
)

type ReactionHandler struct {
	svc service.ReactionService
}

func NewReactionHandler(svc service.ReactionService) *ReactionHandler {
	return &ReactionHandler{svc: svc}
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *ReactionHandler) Add(c echo.Context) error {
	viewer := middleware.PersonID(c)
	msgID, err := parseID(c, "msgId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	var req ReactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	rc, err := h.svc.Add(c.Request().Context(), msgID, viewer, req.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "message not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, rc)
}

func (h *ReactionHandler) Remove(c echo.Context) error {
	viewer := middleware.PersonID(c)
	msgID, err := parseID(c, "msgId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	emoji := c.QueryParam("emoji")
	removed, err := h.svc.Remove(c.Request().Context(), msgID, viewer, emoji)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to remove reaction"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": removed})
}

func (h *ReactionHandler) List(c echo.Context) error {
	msgID, err := parseID(c, "msgId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	list, err := h.svc.ListForMessage(c.Request().Context(), msgID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "message not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch reactions"))
	}
	return c.JSON(http.StatusOK, list)
}
