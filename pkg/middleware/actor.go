package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"transport-request-system/pkg/service"
	"transport-request-system/pkg/utils"
)

type ActorMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewActorMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *ActorMiddleware {
	return &ActorMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Actor кладёт в контекст имя пользователя из Bearer-токена.
// Запрос без токена или с плохим токеном не отклоняется: действие будет записано от имени "System".
func (m *ActorMiddleware) Actor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return next(c)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("ActorMiddleware: неверный формат заголовка Authorization")
			return next(c)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("ActorMiddleware: токен отклонён", zap.Error(err))
			return next(c)
		}

		c.SetRequest(c.Request().WithContext(utils.WithActor(c.Request().Context(), claims.Name)))
		return next(c)
	}
}
