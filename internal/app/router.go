package app

import (
	"watchlearn/docs"
	"watchlearn/internal/config"
	"watchlearn/internal/middleware"
	"watchlearn/internal/model"
	"watchlearn/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.AccessMiddleware(s.user),
		middleware.ActivityMiddleware(s.user.UserRepo),
	)
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerLecturerRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.POST("/profile/avatar", c.user.UploadAvatar)

	rg.GET("/quizzes", c.quiz.ListPublic)
	rg.GET("/quizzes/:id", c.quiz.Detail)

	attempts := rg.Group("/attempts")
	{
		attempts.POST("", c.attempt.Start)
		attempts.GET("/current", c.attempt.Current)
		attempts.DELETE("/current", c.attempt.Exit)
		attempts.POST("/current/interactions", c.attempt.Interact)
		attempts.POST("/current/submit", c.attempt.Submit)
		attempts.GET("/:id", c.attempt.Summary)
	}

	rg.GET("/dashboard", c.dashboard.Student)
	rg.GET("/badges", c.dashboard.Badges)
	rg.GET("/leaderboard", c.leaderboard.Get)
}

func (a *App) registerLecturerRoutes(rg *gin.RouterGroup, c *controllers) {
	lecturer := rg.Group("/lecturer")
	lecturer.Use(middleware.RoleMiddleware(model.Lecturer))
	{
		lecturer.GET("/stats", c.dashboard.Lecturer)

		lecturer.GET("/quizzes", c.quiz.ListMine)
		lecturer.POST("/quizzes", c.quiz.Create)
		lecturer.GET("/quizzes/:id", c.quiz.GetForEdit)
		lecturer.PUT("/quizzes/:id", c.quiz.Update)
		lecturer.DELETE("/quizzes/:id", c.quiz.Delete)
		lecturer.PUT("/quizzes/:id/visibility", c.quiz.SetVisibility)

		lecturer.POST("/quizzes/:id/questions", c.quiz.AddQuestion)
		lecturer.DELETE("/quizzes/:id/questions/:qid", c.quiz.DeleteQuestion)
		lecturer.PUT("/quizzes/:id/questions/:qid/active", c.quiz.SetQuestionActive)
		lecturer.POST("/quizzes/:id/questions/:qid/images", c.quiz.UploadImage)
		lecturer.POST("/quizzes/:id/questions/:qid/video", c.quiz.UploadVideo)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.List)
		admin.PUT("/users/:id/approval", c.user.SetApproval)
		admin.POST("/users/:id/ban", c.user.Ban)
		admin.DELETE("/users/:id/ban", c.user.Unban)
		admin.GET("/bans", c.user.ListBans)

		admin.GET("/badges", c.badge.List)
		admin.POST("/badges", c.badge.Create)
		admin.PUT("/badges/:id", c.badge.Update)
		admin.PUT("/badges/:id/active", c.badge.SetActive)
		admin.DELETE("/badges/:id", c.badge.Delete)

		admin.GET("/outbox", c.outbox.Status)
		admin.POST("/outbox/requeue", c.outbox.Requeue)
	}
}
