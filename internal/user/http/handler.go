package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/request"
	"github.com/sessionshare/session-share/internal/pkg/response"
	"github.com/sessionshare/session-share/internal/user"
)

// UserHandler serves the /users endpoint family.
type UserHandler struct {
	service    user.Service
	orgService organization.Service
	jwtManager *auth.JWTManager

	secureCookies bool
}

// NewUserHandler creates a new user handler.
func NewUserHandler(service user.Service, orgService organization.Service, jwtManager *auth.JWTManager, secureCookies bool) *UserHandler {
	return &UserHandler{
		service:       service,
		orgService:    orgService,
		jwtManager:    jwtManager,
		secureCookies: secureCookies,
	}
}

// Register creates a new account and opens a session.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	u, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			response.Error(c, apperror.Conflict(err.Error()))
			return
		}
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, err.Error()))
		return
	}

	h.openSession(c, u, http.StatusCreated)
}

// Login authenticates with email and password.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	u, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrInactiveUser) {
			response.Error(c, apperror.New(http.StatusUnauthorized, err.Error()))
			return
		}
		response.Error(c, err)
		return
	}

	h.openSession(c, u, http.StatusOK)
}

// GoogleAuth authenticates with a Google ID token.
func (h *UserHandler) GoogleAuth(c *gin.Context) {
	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	u, err := h.service.GoogleLogin(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrInactiveUser) {
			response.Error(c, apperror.New(http.StatusUnauthorized, err.Error()))
			return
		}
		response.Error(c, err)
		return
	}

	h.openSession(c, u, http.StatusOK)
}

// Logout clears the session cookie. The token itself simply expires.
func (h *UserHandler) Logout(c *gin.Context) {
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", h.secureCookies, true)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated identity with its organization list.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.Error(c, apperror.New(http.StatusUnauthorized, "user not found"))
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": NewUserResponse(u)})
}

// InvitationInfo returns the public invitation details used to pre-fill
// the login/register forms.
func (h *UserHandler) InvitationInfo(c *gin.Context) {
	var uri request.ByCodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	inv, org, err := h.orgService.InvitationByCode(c.Request.Context(), uri.Code)
	if err != nil {
		switch {
		case errors.Is(err, organization.ErrInviteNotFound):
			response.Error(c, apperror.NotFound(err.Error()))
		case errors.Is(err, organization.ErrInviteExpired):
			response.Error(c, apperror.New(http.StatusGone, err.Error()))
		default:
			response.Error(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, NewInvitationInfoResponse(inv, org.Name))
}

// AcceptInvite consumes an invitation for the authenticated user.
func (h *UserHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	org, err := h.orgService.AcceptInvite(c.Request.Context(), req.InviteCode, auth.GetUserID(c), auth.GetUserEmail(c))
	if err != nil {
		switch {
		case errors.Is(err, organization.ErrInviteNotFound):
			response.Error(c, apperror.NotFound(err.Error()))
		case errors.Is(err, organization.ErrInviteExpired):
			response.Error(c, apperror.New(http.StatusGone, err.Error()))
		case errors.Is(err, organization.ErrInviteMismatch):
			response.Error(c, apperror.Forbidden(err.Error()))
		default:
			response.Error(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, AcceptInviteResponse{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
	})
}

// ForgotPassword issues a reset token. Always answers 202 so the endpoint
// does not reveal which addresses have accounts.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// ResetPassword consumes a reset token and sets the new password.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, user.ErrInvalidResetToken) {
			response.Error(c, apperror.BadRequest(err.Error()))
			return
		}
		response.Error(c, apperror.Wrap(err, http.StatusBadRequest, err.Error()))
		return
	}

	c.Status(http.StatusNoContent)
}

// openSession issues the JWT, sets the session cookie and writes the
// identity payload.
func (h *UserHandler) openSession(c *gin.Context, u *user.User, status int) {
	token, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(h.jwtManager.TTL().Seconds())
	c.SetCookie(auth.SessionCookieName, token, maxAge, "/", "", h.secureCookies, true)

	c.JSON(status, SessionResponse{
		User:  NewUserResponse(u),
		Token: token,
	})
}
