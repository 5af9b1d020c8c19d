package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/core"
	"github.com/apaluca/PrivateChat/internal/store"
)

// GroupHandlers provides HTTP handlers for group endpoints.
type GroupHandlers struct {
	hub   *core.Hub
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(hub *core.Hub, st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	OwnerID   int64  `json:"ownerId"`
	CreatedAt string `json:"created_at"`
}

// GroupMemberResponse represents a group member in API responses.
type GroupMemberResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	JoinedAt string `json:"joined_at"`
}

// MemberRequest names the user a membership change applies to.
type MemberRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

// CreateGroup handles group creation. The creator becomes the group's first
// admin member.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, uid)
	if err != nil {
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, groupResponse(group))
}

// ListGroups returns the groups the caller belongs to.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListGroups(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupResponse, 0, len(groups))
	for _, group := range groups {
		response = append(response, groupResponse(group))
	}
	c.JSON(http.StatusOK, response)
}

// GroupMembers returns the member roster of a group. Only members may view it.
// GET /api/groups/:id/members
func (h *GroupHandlers) GroupMembers(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	members, err := h.store.GetGroupMembers(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to list group members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, memberResponses(members))
}

// AddMember adds a user to a group on behalf of an admin.
// POST /api/groups/:id/members
func (h *GroupHandlers) AddMember(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	members, err := h.hub.AddGroupMember(c.Request.Context(), groupID, req.UserID, uid)
	if err != nil {
		h.writeCoreError(c, err, groupID)
		return
	}
	c.JSON(http.StatusOK, memberResponses(members))
}

// RemoveMember removes a member from a group. Members may remove themselves;
// removing anyone else requires admin.
// DELETE /api/groups/:id/members/:userId
func (h *GroupHandlers) RemoveMember(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	members, err := h.hub.RemoveGroupMember(c.Request.Context(), groupID, userID, uid)
	if err != nil {
		h.writeCoreError(c, err, groupID)
		return
	}
	c.JSON(http.StatusOK, memberResponses(members))
}

// GroupMessages returns recent history of a group. Only members may read it.
// GET /api/groups/:id/messages
func (h *GroupHandlers) GroupMessages(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	messages, err := h.store.GroupMessages(c.Request.Context(), groupID, historyLimit(c))
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to list group messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, messageResponses(messages))
}

// memberGroup parses the :id parameter and verifies the caller is a member,
// writing the error response itself when not.
func (h *GroupHandlers) memberGroup(c *gin.Context) (int64, bool) {
	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return 0, false
	}

	if _, err := h.store.GetGroupByID(c.Request.Context(), groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
			return 0, false
		}
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to load group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return 0, false
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, false
	}

	member, err := h.store.IsGroupMember(c.Request.Context(), groupID, uid)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to check group membership")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return 0, false
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this group"})
		return 0, false
	}
	return groupID, true
}

func (h *GroupHandlers) writeCoreError(c *gin.Context, err error, groupID int64) {
	ce := core.AsCoreError(err)
	switch ce.Code {
	case core.ErrCodeGroupNotFound, core.ErrCodeUserNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ce.Message})
	case core.ErrCodeForbidden, core.ErrCodeNotAMember:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: ce.Message})
	case core.ErrCodeValidation, core.ErrCodeBadRequest:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ce.Message})
	default:
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("group membership change failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func groupResponse(group *store.Group) GroupResponse {
	return GroupResponse{
		ID:        group.ID,
		Name:      group.Name,
		OwnerID:   group.OwnerID,
		CreatedAt: group.CreatedAt.Format(time.RFC3339),
	}
}

func memberResponses(members []*store.GroupMember) []GroupMemberResponse {
	response := make([]GroupMemberResponse, 0, len(members))
	for _, member := range members {
		response = append(response, GroupMemberResponse{
			UserID:   member.UserID,
			Username: member.Username,
			IsAdmin:  member.IsAdmin,
			JoinedAt: member.JoinedAt.Format(time.RFC3339),
		})
	}
	return response
}
