package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/handler"
	"github.com/jengzang/pulse-backend-go/internal/middleware"
	"github.com/jengzang/pulse-backend-go/internal/service"
	"github.com/jengzang/pulse-backend-go/pkg/response"
)

// Services are the collaborators the router exposes.
type Services struct {
	DB       *sql.DB
	Scoring  *service.ScoringService
	Readings *service.ReadingService
	Tasks    *service.AnalysisTaskService
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	r.Use(middleware.RateLimit(cfg.RateLimit, time.Minute))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if err := s.DB.PingContext(c.Request.Context()); err != nil {
			response.Unavailable(c, "database unreachable")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Pulse scoring API is running",
		})
	})

	scoring := handler.NewScoringHandler(s.Scoring)
	readings := handler.NewReadingHandler(s.Readings)
	tasks := handler.NewAnalysisTaskHandler(s.Tasks)
	auth := middleware.Auth(cfg.JWTSecret)

	// API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/profiles", scoring.ListProfiles)

		// 场馆评分接口
		venues := api.Group("/venues/:venueId", auth)
		{
			venues.GET("/score", scoring.ScoreLatest)
			venues.POST("/score", scoring.ScoreReading)
			venues.GET("/timeslot", scoring.Classify)
			venues.GET("/learned", scoring.LearnedModel)
			venues.GET("/readings", readings.ListReadings)
			venues.POST("/readings", readings.CreateReading)
			venues.POST("/readings/:id/outcome", readings.AttachOutcome)
		}

		// 分析任务接口
		analysis := api.Group("/analysis", auth, middleware.RequireAdmin(cfg.JWTSecret))
		{
			analysis.POST("/tasks", tasks.CreateTask)
			analysis.GET("/tasks", tasks.ListTasks)
			analysis.GET("/tasks/:id", tasks.GetTask)
			analysis.DELETE("/tasks/:id", tasks.CancelTask)
		}
	}

	return r
}
