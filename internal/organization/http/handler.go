package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/request"
	"github.com/sessionshare/session-share/internal/pkg/response"
	"github.com/sessionshare/session-share/internal/pkg/storage"
)

// Logo uploads are capped at 5 MiB.
const maxLogoSize = 5 << 20

// OrganizationHandler serves the /organizations endpoint family.
type OrganizationHandler struct {
	service organization.Service
	logos   *storage.LogoStore
}

// NewOrganizationHandler creates a new organization handler.
func NewOrganizationHandler(service organization.Service, logos *storage.LogoStore) *OrganizationHandler {
	return &OrganizationHandler{
		service: service,
		logos:   logos,
	}
}

// Create creates an organization owned by the authenticated user.
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	org, err := h.service.Create(c.Request.Context(), auth.GetUserID(c), organization.CreateRequest{
		Name:         req.Name,
		Domain:       req.Domain,
		IsDomainOpen: req.IsDomainOpen,
		Type:         req.Type,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewOrganizationResponse(org))
}

// Get returns the full membership graph of one organization.
func (h *OrganizationHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	details, err := h.service.Get(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewDetailsResponse(details))
}

// Update edits organization attributes. Owner only.
func (h *OrganizationHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	org, err := h.service.Update(c.Request.Context(), uri.ID, auth.GetUserID(c), organization.UpdateRequest{
		Name:         req.Name,
		Domain:       req.Domain,
		IsDomainOpen: req.IsDomainOpen,
		Type:         req.Type,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewOrganizationResponse(org))
}

// Delete removes an organization and everything under it. Owner only.
func (h *OrganizationHandler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID, auth.GetUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadLogo stores the organization logo from a multipart form field named "logo".
func (h *OrganizationHandler) UploadLogo(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		response.Error(c, apperror.BadRequest("logo file is required"))
		return
	}
	if fileHeader.Size > maxLogoSize {
		response.Error(c, apperror.New(http.StatusRequestEntityTooLarge, "logo file is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	logoPath, err := h.logos.Save(c.Request.Context(), uri.ID, file)
	if err != nil {
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, "failed to process logo image"))
		return
	}

	if err := h.service.SetLogo(c.Request.Context(), uri.ID, auth.GetUserID(c), logoPath); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logo": logoPath})
}

// GetLogo streams the stored organization logo.
func (h *OrganizationHandler) GetLogo(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	content, err := h.logos.Get(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, apperror.NotFound("logo not found"))
		return
	}
	defer content.Close()

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content); err != nil {
		_ = c.Error(err)
	}
}

// Invite sends invitations to a batch of email addresses.
func (h *OrganizationHandler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entries := make([]organization.InviteEntry, 0, len(req.Emails))
	for _, e := range req.Emails {
		role := organization.Role(e.UserRole)
		if e.UserRole == "" {
			role = organization.RoleMember
		}
		entries = append(entries, organization.InviteEntry{Email: e.Email, Role: role})
	}

	invitations, err := h.service.Invite(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), entries)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, NewInvitationResponse(inv))
	}
	c.JSON(http.StatusCreated, gin.H{"invitations": out})
}

// ListInvitations lists the pending invitations of an organization.
func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	invitations, err := h.service.ListInvitations(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, NewInvitationResponse(inv))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": out})
}

// CancelInvite withdraws a pending invitation.
func (h *OrganizationHandler) CancelInvite(c *gin.Context) {
	var uri CancelInviteRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.service.CancelInvite(c.Request.Context(), uri.OrganizationID, auth.GetUserID(c), uri.InviteID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddModerator grants the moderator role to a member. Owner only.
func (h *OrganizationHandler) AddModerator(c *gin.Context) {
	h.changeRole(c, organization.RoleModerator, false)
}

// RemoveModerator revokes the moderator role. Owner only.
func (h *OrganizationHandler) RemoveModerator(c *gin.Context) {
	h.changeRole(c, organization.RoleModerator, true)
}

// AddEditor grants the editor role to a member.
func (h *OrganizationHandler) AddEditor(c *gin.Context) {
	h.changeRole(c, organization.RoleEditor, false)
}

// RemoveEditor revokes the editor role.
func (h *OrganizationHandler) RemoveEditor(c *gin.Context) {
	h.changeRole(c, organization.RoleEditor, true)
}

func (h *OrganizationHandler) changeRole(c *gin.Context, role organization.Role, revoke bool) {
	var req RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var err error
	if revoke {
		err = h.service.Demote(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), req.Email, role)
	} else {
		err = h.service.Promote(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), req.Email, role)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember removes a member from the organization.
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	var req RemoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), req.UserID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateCategories applies a batch of category renames, deletions and adds
// and returns the resulting category list.
func (h *OrganizationHandler) UpdateCategories(c *gin.Context) {
	var req UpdateCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	renames := make([]organization.CategoryRename, 0, len(req.Renames))
	for _, r := range req.Renames {
		renames = append(renames, organization.CategoryRename{ID: r.ID, Name: r.Name})
	}

	categories, err := h.service.UpdateCategories(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), renames, req.Deletions, req.Adds)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, NewCategoryResponse(cat))
	}
	c.JSON(http.StatusOK, gin.H{"user_categories": out})
}

// UpdateMemberCategory assigns or clears a plain member's category.
func (h *OrganizationHandler) UpdateMemberCategory(c *gin.Context) {
	var req UpdateMemberCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.service.UpdateMemberCategory(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), req.UserID, req.CategoryName); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// writeError maps organization domain errors to HTTP responses.
func (h *OrganizationHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, organization.ErrOrgNotFound),
		errors.Is(err, organization.ErrMemberNotFound),
		errors.Is(err, organization.ErrInviteNotFound),
		errors.Is(err, organization.ErrCategoryUnknown):
		response.Error(c, apperror.NotFound(err.Error()))
	case errors.Is(err, organization.ErrNotMember),
		errors.Is(err, organization.ErrOwnerImmutable):
		response.Error(c, apperror.Forbidden(err.Error()))
	case errors.Is(err, organization.ErrAlreadyMember),
		errors.Is(err, organization.ErrAlreadyInvited),
		errors.Is(err, organization.ErrCategoryExists):
		response.Error(c, apperror.Conflict(err.Error()))
	case errors.Is(err, organization.ErrNameRequired),
		errors.Is(err, organization.ErrInviteExpired):
		response.Error(c, apperror.BadRequest(err.Error()))
	default:
		response.Error(c, err)
	}
}
