package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/plume-sante/community-backend/internal/middleware"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/service"
)

type ConversationHandler struct {
	convSvc    service.ConversationService
	memberSvc  service.MembershipService
	summarySvc service.SummaryService
}

func NewConversationHandler(convSvc service.ConversationService, memberSvc service.MembershipService, summarySvc service.SummaryService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc, memberSvc: memberSvc, summarySvc: summarySvc}
}

type DirectConversationRequest struct {
	PersonID uint64  `json:"personId"`
	Title    *string `json:"title"`
}

type GroupConversationRequest struct {
	MemberIDs      []uint64 `json:"memberIds"`
	Title          string   `json:"title"`
	CreatorAsAdmin bool     `json:"creatorAsAdmin"`
}

type AddMemberRequest struct {
	PersonID uint64 `json:"personId"`
	Role     string `json:"role"`
}

type LeaveRequest struct {
	KeepMessages bool `json:"keepMessages"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

func (h *ConversationHandler) CreateDirect(c echo.Context) error {
	viewer := middleware.PersonID(c)
	var req DirectConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	cv, err := h.convSvc.GetOrCreateDirect(c.Request().Context(), viewer, req.PersonID, req.Title)
	if err != nil {
		if errors.Is(err, service.ErrSelfChat) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to resolve conversation"))
	}
	return c.JSON(http.StatusOK, cv)
}

func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	viewer := middleware.PersonID(c)
	var req GroupConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	cv, err := h.convSvc.CreateGroup(c.Request().Context(), viewer, req.MemberIDs, req.Title, req.CreatorAsAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to create group"))
	}
	return c.JSON(http.StatusCreated, cv)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, err := h.convSvc.Get(c.Request().Context(), convID, viewer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch conversation"))
	}
	return c.JSON(http.StatusOK, cv)
}

func (h *ConversationHandler) List(c echo.Context) error {
	viewer := middleware.PersonID(c)
	summaries, err := h.summarySvc.ListForViewer(c.Request().Context(), viewer)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch conversations"))
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *ConversationHandler) AddMember(c echo.Context) error {
	if middleware.PersonID(c) == 0 {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing person id"))
	}
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	role := model.MemberRole(req.Role)
	if role != model.RoleAdmin {
		role = model.RoleMember
	}
	m, err := h.convSvc.AddMember(c.Request().Context(), convID, req.PersonID, role)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to add member"))
	}
	return c.JSON(http.StatusOK, m)
}

func (h *ConversationHandler) Leave(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req LeaveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	ctx := c.Request().Context()
	cv, err := h.convSvc.Get(ctx, convID, viewer)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
			// Leaving something you are not in is a no-op.
			return c.JSON(http.StatusOK, map[string]bool{"left": false})
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to leave"))
	}
	var left bool
	if cv.IsGroup {
		left, err = h.memberSvc.LeaveGroup(ctx, convID, viewer, !req.KeepMessages)
	} else {
		left, err = h.memberSvc.LeaveDirect(ctx, convID, viewer, !req.KeepMessages)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to leave"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"left": left})
}

func (h *ConversationHandler) DeleteGroup(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	hard := c.QueryParam("mode") != "soft"
	if err := h.memberSvc.DeleteGroup(c.Request().Context(), convID, viewer, hard); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a member"))
		case errors.Is(err, service.ErrNotGroup):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "not a group conversation"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to delete group"))
	}
	return c.JSON(http.StatusOK, okResponse())
}

func (h *ConversationHandler) SetMuted(c echo.Context) error {
	viewer := middleware.PersonID(c)
	convID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req MuteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := h.memberSvc.SetMuted(c.Request().Context(), convID, viewer, req.Muted); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "membership not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to update mute"))
	}
	return c.JSON(http.StatusOK, okResponse())
}

func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
