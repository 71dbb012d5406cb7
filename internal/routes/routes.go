package routes

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"transport-request-system/internal/controllers"
	"transport-request-system/internal/listeners"
	"transport-request-system/internal/repositories"
	"transport-request-system/internal/services"
	"transport-request-system/internal/workflow"
	"transport-request-system/pkg/config"
	apperrors "transport-request-system/pkg/errors"
	"transport-request-system/pkg/eventbus"
	"transport-request-system/pkg/metrics"
	"transport-request-system/pkg/middleware"
	"transport-request-system/pkg/service"
	"transport-request-system/pkg/utils"
	"transport-request-system/pkg/validation"
	appwebsocket "transport-request-system/pkg/websocket"
)

type Loggers struct {
	Main        *zap.Logger
	Application *zap.Logger
	History     *zap.Logger
}

// Dependencies - внешние ресурсы, которые создаёт вызывающий (serve, seed, тесты).
type Dependencies struct {
	Repo     repositories.ApplicationRepositoryInterface
	Cache    repositories.CacheRepositoryInterface // nil - сводка без кеша
	Bus      *eventbus.Bus
	JWT      service.JWTService
	Registry *prometheus.Registry
	Now      func() time.Time
	Location *time.Location
	Hub      *appwebsocket.Hub // nil - без ленты изменений
}

type Services struct {
	Applications services.ApplicationServiceInterface
	Dashboard    services.DashboardServiceInterface
}

// BuildServices собирает сервисы и подписывает слушателей на шину.
func BuildServices(cfg *config.Config, deps Dependencies, loggers *Loggers) *Services {
	var policy workflow.TransitionPolicy = workflow.PermissivePolicy{}
	if cfg.Workflow.StrictTransitions {
		policy = workflow.NewTablePolicy(workflow.DefaultDispatchTable())
	}

	var workflowMetrics *metrics.WorkflowMetrics
	if deps.Registry != nil {
		workflowMetrics = metrics.NewWorkflowMetrics(deps.Registry)
	}

	applicationService := services.NewApplicationService(
		deps.Repo,
		workflow.NewEngine(policy, deps.Now),
		services.NewAuditRecorder(loggers.History),
		workflow.NewSeededNumberGenerator(cfg.Workflow.NumberSeed),
		validation.New(),
		deps.Bus,
		workflowMetrics,
		loggers.Application,
	)
	dashboardService := services.NewDashboardService(
		deps.Repo,
		deps.Cache,
		cfg.Dashboard.CacheTTL,
		cfg.Dashboard.UrgentWindow,
		deps.Now,
		workflowMetrics,
		loggers.Main,
	)
	if deps.Bus != nil {
		listeners.NewDashboardCacheListener(dashboardService, loggers.Main).Register(deps.Bus)
		if deps.Hub != nil {
			listeners.NewLiveFeedListener(deps.Hub).Register(deps.Bus)
		}
	}

	return &Services{Applications: applicationService, Dashboard: dashboardService}
}

// NewServer создаёт echo с общими middleware.
func NewServer(cfg *config.Config, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("Паника при обработке запроса",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.Server.CORSAllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))
	return e
}

func InitRouter(e *echo.Echo, cfg *config.Config, deps Dependencies, loggers *Loggers) *Services {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	svc := BuildServices(cfg, deps, loggers)
	actorMW := middleware.NewActorMiddleware(deps.JWT, loggers.Main)

	e.GET("/health", func(c echo.Context) error {
		return utils.SuccessResponse(c, nil, "ok", http.StatusOK)
	})
	if deps.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api", actorMW.Actor)
	runApplicationRouter(api, controllers.NewApplicationController(svc.Applications, deps.Location, loggers.Application))
	runDashboardRouter(api, controllers.NewDashboardController(svc.Dashboard, loggers.Main))
	api.GET("/statuses", controllers.GetStatuses)
	if deps.Hub != nil {
		api.GET("/live", controllers.NewLiveController(deps.Hub, deps.JWT, cfg.Server.CORSAllowedOrigins, loggers.Main).ServeWs)
	}

	loggers.Main.Info("INIT_ROUTER: Создание маршрутов завершено")
	return svc
}

func runApplicationRouter(api *echo.Group, ctrl *controllers.ApplicationController) {
	applications := api.Group("/applications")
	{
		applications.GET("", ctrl.GetApplications)
		applications.GET("/template", ctrl.GetTemplate)
		applications.POST("", ctrl.CreateApplication)
		applications.GET("/:id", ctrl.FindApplication)
		applications.PUT("/:id", ctrl.UpdateApplication)
		applications.DELETE("/:id", ctrl.DeleteApplication)
		applications.POST("/:id/approve", ctrl.ApproveApplication)
		applications.POST("/:id/reject", ctrl.RejectApplication)
		applications.POST("/:id/assign-vehicle", ctrl.AssignVehicle)
		applications.POST("/:id/complete", ctrl.CompleteApplication)
		applications.POST("/:id/status", ctrl.ChangeStatus)
		applications.GET("/:id/history", ctrl.GetHistory)
	}
}

func runDashboardRouter(api *echo.Group, ctrl *controllers.DashboardController) {
	api.GET("/dashboard", ctrl.GetDashboard)
}
