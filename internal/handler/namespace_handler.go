package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knowd-io/knowd/internal/pkg/errcode"
	"github.com/knowd-io/knowd/internal/pkg/response"
	"github.com/knowd-io/knowd/internal/service"
)

type NamespaceHandler struct {
	svc *service.NamespaceService
}

func NewNamespaceHandler(svc *service.NamespaceService) *NamespaceHandler {
	return &NamespaceHandler{svc: svc}
}

type namespaceRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

func (h *NamespaceHandler) List(c *gin.Context) {
	spaces, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, spaces)
}

func (h *NamespaceHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ns, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ns)
}

func (h *NamespaceHandler) Create(c *gin.Context) {
	var req namespaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	ns, err := h.svc.Create(c.Request.Context(), req.Name, req.Description, req.Keywords)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ns)
}

func (h *NamespaceHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req namespaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	ns, err := h.svc.Update(c.Request.Context(), id, req.Description, req.Keywords)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ns)
}

func (h *NamespaceHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
