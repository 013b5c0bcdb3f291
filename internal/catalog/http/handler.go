package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/catalog"
	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/request"
	"github.com/sessionshare/session-share/internal/pkg/response"
)

// ServiceHandler serves the /services endpoint family.
type ServiceHandler struct {
	service catalog.ManagerService
}

// NewServiceHandler creates a new catalog handler.
func NewServiceHandler(service catalog.ManagerService) *ServiceHandler {
	return &ServiceHandler{service: service}
}

// Create adds a service to the organization catalog, sealing the submitted
// cookie bundle with the organization public key.
func (h *ServiceHandler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	svc, err := h.service.Create(c.Request.Context(), req.OrganizationID, auth.GetUserID(c), catalog.CreateServiceRequest{
		Name:      req.Name,
		Domain:    req.Domain,
		Category:  req.Category,
		LogoURL:   req.LogoURL,
		Tags:      req.Tags,
		Cookies:   toCookies(req.Cookies),
		CookieTTL: time.Duration(req.CookieTTLHours) * time.Hour,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewServiceResponse(svc))
}

// Get returns one catalog entry with its sealed cookie bundle.
func (h *ServiceHandler) Get(c *gin.Context) {
	var uri ByServiceRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	svc, err := h.service.Get(c.Request.Context(), uri.OrganizationID, uri.ServiceID, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewServiceResponse(svc))
}

// List returns one page of the organization's catalog.
func (h *ServiceHandler) List(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var page request.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	page.Normalize()

	services, err := h.service.List(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	total := len(services)
	services = request.Paginate(services, page.Page, page.PageSize)
	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, NewServiceResponse(svc))
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, page.Page, page.PageSize, total))
}

// Update edits a catalog entry. A request without cookies keeps the
// existing sealed bundle.
func (h *ServiceHandler) Update(c *gin.Context) {
	var uri ByServiceRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	svc, err := h.service.Update(c.Request.Context(), uri.OrganizationID, uri.ServiceID, auth.GetUserID(c), catalog.UpdateServiceRequest{
		Name:      req.Name,
		Domain:    req.Domain,
		Category:  req.Category,
		LogoURL:   req.LogoURL,
		Tags:      req.Tags,
		Cookies:   toCookies(req.Cookies),
		CookieTTL: time.Duration(req.CookieTTLHours) * time.Hour,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewServiceResponse(svc))
}

// Delete removes a catalog entry.
func (h *ServiceHandler) Delete(c *gin.Context) {
	var uri ByServiceRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.OrganizationID, uri.ServiceID, auth.GetUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Keys returns the organization key pair used to open sealed bundles.
func (h *ServiceHandler) Keys(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	keys, err := h.service.Keys(c.Request.Context(), uri.ID, auth.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewKeysResponse(keys))
}

// writeError maps catalog domain errors to HTTP responses.
func (h *ServiceHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, catalog.ErrKeysNotFound),
		errors.Is(err, organization.ErrOrgNotFound):
		response.Error(c, apperror.NotFound(err.Error()))
	case errors.Is(err, organization.ErrNotMember),
		errors.Is(err, organization.ErrMemberNotFound):
		response.Error(c, apperror.Forbidden(err.Error()))
	case errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, catalog.ErrDomainRequired):
		response.Error(c, apperror.BadRequest(err.Error()))
	default:
		response.Error(c, err)
	}
}
