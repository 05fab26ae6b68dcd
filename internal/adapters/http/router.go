// Package http is the gin surface of the engine: one command endpoint and
// the websocket sync endpoint.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/adapters"
	"github.com/dkeye/Conclave/internal/config"
	"github.com/dkeye/Conclave/internal/dispatch"
)

var ErrUnknownCommandType = errors.New("unknown command type")

func SetupRouter(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher,
	codec *Codec, sync *adapters.SyncController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.POST("/command", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, dispatch.Fail(dispatch.CodeValidation, "unreadable request body"))
			return
		}
		cmd, err := codec.Decode(raw)
		if err != nil {
			code := dispatch.CodeValidation
			if errors.Is(err, ErrUnknownCommandType) {
				code = dispatch.CodeNoHandler
			}
			c.JSON(statusOf(code), dispatch.Fail(code, err.Error()))
			return
		}
		result := d.Dispatch(c.Request.Context(), cmd)
		if result.Success {
			c.JSON(http.StatusOK, result)
			return
		}
		c.JSON(statusOf(result.Code), result)
	})

	api.GET("/ws/sync", func(c *gin.Context) {
		sync.HandleSync(ctx, c)
	})

	return r
}

// statusOf maps the dispatch error taxonomy onto HTTP statuses.
func statusOf(code dispatch.Code) int {
	switch code {
	case dispatch.CodeValidation, dispatch.CodeNoHandler:
		return http.StatusBadRequest
	case dispatch.CodePermissionDenied:
		return http.StatusForbidden
	case dispatch.CodeNotFound:
		return http.StatusNotFound
	case dispatch.CodeConflict:
		return http.StatusConflict
	case dispatch.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
