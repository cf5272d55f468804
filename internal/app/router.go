package app

import (
	"sign_learn_backend/docs"
	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/middleware"
	"sign_learn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.Use(middleware.TrackMiddleware(a.DefaultTrack))

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(api, c)

	// 2. 需要授权的路由，auth.required=false 时令牌可选
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerExerciseRoutes(authGroup, c)
		a.registerSocialRoutes(authGroup, c)
		a.registerCourseRoutes(authGroup, c)
	}

	// 3. 教师接口
	a.registerTeacherRoutes(api, c, cfg)
}

func (a *App) registerPublicRoutes(api *gin.RouterGroup, c *controllers) {
	api.GET("/health", c.health.HealthCheck)
	api.GET("/language/status", c.user.LanguageStatus)
	api.GET("/signs/resolve", c.sign.Resolve)

	auth := api.Group("/auth")
	{
		auth.POST("/sync-user", c.auth.SyncUser)
		auth.GET("/user-by-firebase/:uid", c.auth.UserByFirebase)
	}
}

func (a *App) registerExerciseRoutes(group *gin.RouterGroup, c *controllers) {
	exercises := group.Group("/exercises")
	{
		exercises.POST("/start", c.exercise.Start)
		exercises.POST("/answer", c.exercise.Answer)
		exercises.POST("/skip", c.exercise.Skip)
		exercises.POST("/finish", c.exercise.Finish)
		exercises.POST("/cancel", c.exercise.Cancel)
		exercises.GET("/status", c.exercise.Status)
		exercises.GET("/items", c.exercise.Items)
	}
}

func (a *App) registerSocialRoutes(group *gin.RouterGroup, c *controllers) {
	news := group.Group("/news")
	{
		news.GET("/feed", c.news.Feed)
		news.POST("/like", c.news.ToggleLike)
		news.POST("/comment", c.news.AddComment)
		news.GET("/comments", c.news.Comments)
		news.POST("/activity", c.news.PublishActivity)
	}

	users := group.Group("/users")
	{
		users.GET("/:id/progress", c.user.GetProgress)
		users.POST("/:id/follow", c.user.Follow)
	}
}

func (a *App) registerCourseRoutes(group *gin.RouterGroup, c *controllers) {
	courses := group.Group("/courses")
	{
		courses.GET("/mine", c.course.MyCourses)
		courses.GET("/available", c.course.AvailableCourses)
		courses.POST("/:courseId/enroll", c.course.Enroll)
		courses.DELETE("/:courseId/enroll", c.course.Unenroll)
		courses.GET("/:courseId/lessons", c.lesson.ListLessons)
	}

	group.GET("/lessons/:lessonId", c.lesson.LessonInfo)
}

func (a *App) registerTeacherRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	signs := api.Group("/signs")
	signs.Use(middleware.AuthMiddleware(cfg), middleware.TeacherMiddleware())
	{
		signs.POST("", c.sign.Upload)
		signs.DELETE("/:name", c.sign.Delete)
	}
}
