package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/pkg/errcode"
	"github.com/knowd-io/knowd/internal/pkg/response"
	"github.com/knowd-io/knowd/internal/service"
)

type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload accepts a multipart file plus its target namespace and processes it
// inline so a successful response means the document is queryable.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "missing file field")
		return
	}
	nsID := postFormInt64(c, "namespace_id")
	if nsID <= 0 {
		response.Error(c, errcode.ErrInvalid, "missing namespace_id")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "cannot read upload")
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	doc, err := h.svc.Upload(ctx, nsID, file.Filename, file.Size, src)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.svc.Process(ctx, doc.ID); err != nil {
		// Upload survived; report the errored document instead of failing.
		logutil.GetLogger(ctx).Warn("inline processing failed", zap.Int64("doc_id", doc.ID), zap.Error(err))
	}
	doc, err = h.svc.Get(ctx, doc.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	nsID := queryInt64(c, "namespace_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	docs, err := h.svc.List(c.Request.Context(), nsID, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Reparse(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reparse(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	doc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
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
