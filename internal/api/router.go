package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/api/handler"
	"github.com/qs3c/ecogrid_server/internal/api/middleware"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	energyHandler    *handler.EnergyHandler
	planHandler      *handler.PlanHandler
	qrHandler        *handler.QRHandler
	smsHandler       *handler.SMSHandler
	websocketHandler *handler.WebSocketHandler
	healthHandler    *handler.HealthHandler
	revoked          middleware.RevocationChecker
	roles            middleware.RoleLookup
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	energyHandler *handler.EnergyHandler,
	planHandler *handler.PlanHandler,
	qrHandler *handler.QRHandler,
	smsHandler *handler.SMSHandler,
	websocketHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	revoked middleware.RevocationChecker,
	roles middleware.RoleLookup,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		energyHandler:    energyHandler,
		planHandler:      planHandler,
		qrHandler:        qrHandler,
		smsHandler:       smsHandler,
		websocketHandler: websocketHandler,
		healthHandler:    healthHandler,
		revoked:          revoked,
		roles:            roles,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	auth := middleware.Auth(r.cfg.JWT.Secret, r.revoked)

	// 公开接口
	engine.GET("/healthz", r.healthHandler.Health)
	engine.GET("/plans", r.planHandler.List)
	engine.POST("/generate_qr", r.qrHandler.Generate)

	// 需要认证的接口
	engine.GET("/logout", auth, r.authHandler.Logout)
	engine.GET("/get_user_details", auth, r.userHandler.GetDetails)
	engine.POST("/send_sms", auth, r.smsHandler.Send)

	api := engine.Group("/api")
	{
		// WebSocket，令牌放在 query 里
		api.GET("/ws", r.websocketHandler.Handle)

		api.POST("/signup", r.authHandler.Signup)
		api.POST("/login", r.authHandler.Login)

		authenticated := api.Group("")
		authenticated.Use(auth)
		{
			// 用户
			authenticated.GET("/locations", r.userHandler.Locations)
			authenticated.PUT("/location", r.userHandler.UpdateLocation)
			// 角色在 service 里检查，保护账号的拒绝优先
			authenticated.POST("/users/delete", r.userHandler.DeleteUser)

			// 能源
			authenticated.GET("/predict_electricity", r.energyHandler.PredictElectricity)
			authenticated.POST("/suggest_plan", r.energyHandler.SuggestPlan)
			authenticated.POST("/buy_plan", r.energyHandler.BuyPlan)
		}

		// 管理接口按库里的角色放行
		admin := api.Group("")
		admin.Use(auth, middleware.AdminOnly(r.roles))
		{
			admin.GET("/users", r.userHandler.ListUsers)
			admin.POST("/allocate_energy", r.energyHandler.AllocateEnergy)
		}
	}

	return engine
}
