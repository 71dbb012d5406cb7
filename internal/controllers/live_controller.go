package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"transport-request-system/pkg/service"
	"transport-request-system/pkg/utils"
	appwebsocket "transport-request-system/pkg/websocket"
)

// LiveController подключает доску диспетчера к ленте изменений заявок.
type LiveController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewLiveController(hub *appwebsocket.Hub, jwtService service.JWTService, allowedOrigins []string, logger *zap.Logger) *LiveController {
	return &LiveController{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// ServeWs - браузер не умеет слать заголовки при апгрейде, поэтому токен можно передать в ?token=.
func (c *LiveController) ServeWs(ctx echo.Context) error {
	actor := utils.ActorFromContext(ctx.Request().Context())
	if token := ctx.QueryParam("token"); token != "" && c.jwtService != nil {
		if claims, err := c.jwtService.ValidateToken(token); err == nil {
			actor = claims.Name
		} else {
			c.logger.Warn("WebSocket: токен отклонён", zap.Error(err))
		}
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Warn("WebSocket: не удалось установить соединение", zap.Error(err))
		return nil
	}
	c.hub.Serve(conn, actor)

	c.logger.Info("WebSocket: клиент подключен", zap.String("actor", actor))
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get(echo.HeaderOrigin)
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
