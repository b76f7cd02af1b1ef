package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/plume-sante/community-backend/internal/middleware"
	"github.com/plume-sante/community-backend/internal/service"
)

type MessageHandler struct {
	msgSvc  service.MessageService
	readSvc service.ReadTracker
}

func NewMessageHandler(msgSvc service.MessageService, readSvc service.ReadTracker) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc, readSvc: readSvc}
}

type PostMessageRequest struct {
	Body           string  `json:"body"`
	ReplyTo        *uint64 `json:"replyTo"`
	HasAttachments bool    `json:"hasAttachments"`
}

type EditMessageRequest struct {
	Body string `json:"body"`
}

type ReadCursorRequest struct {
	LastReadMessageID uint64 `json:"lastReadMessageId"`
}

func (h *MessageHandler) Post(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.msgSvc.Post(c.Request().Context(), convID, viewer, req.Body, req.ReplyTo, req.HasAttachments)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) List(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msgs, err := h.msgSvc.List(c.Request().Context(), convID, viewer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch messages"))
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *MessageHandler) Edit(c echo.Context) error {
	msgID, err := parseID(c, "msgId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	var req EditMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.msgSvc.Edit(c.Request().Context(), msgID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "message not found"))
		case errors.Is(err, service.ErrMessageDeleted):
			return c.JSON(http.StatusConflict, NewErrorResponse("conflict", "message is deleted"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to edit message"))
	}
	return c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Delete(c echo.Context) error {
	msgID, err := parseID(c, "msgId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.msgSvc.SoftDelete(c.Request().Context(), msgID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "message not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to delete message"))
	}
	return c.JSON(http.StatusOK, okResponse())
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req ReadCursorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := h.readSvc.SetReadCursor(c.Request().Context(), convID, viewer, req.LastReadMessageID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "membership not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to mark read"))
	}
	return c.JSON(http.StatusOK, okResponse())
}

func (h *MessageHandler) UnreadCount(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cnt, err := h.readSvc.UnreadCount(c.Request().Context(), convID, viewer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to count unread"))
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": cnt})
}
