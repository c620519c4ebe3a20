package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/pkg/errcode"
	appErr "github.com/knowd-io/knowd/internal/pkg/errors"
	"github.com/knowd-io/knowd/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrEmptyQuery):
		response.Error(c, errcode.ErrEmptyQuery, err.Error())
	case errors.Is(err, appErr.ErrBuiltinSpace):
		response.Error(c, errcode.ErrBuiltinSpace, err.Error())
	case errors.Is(err, appErr.ErrSpaceNotEmpty):
		response.Error(c, errcode.ErrSpaceNotEmpty, err.Error())
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "already exists")
	case errors.Is(err, appErr.ErrAIUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	case errors.Is(err, appErr.ErrIndexCorrupted):
		response.Error(c, errcode.ErrIndexCorrupted, "index corrupted")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, errcode.ErrInvalid, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func postFormInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.PostForm(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
