package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"crm-api/handlers"
	"crm-api/initializers"
	"crm-api/mail"
	"crm-api/middleware"
	"crm-api/pkg/notify"
	"crm-api/query"
	"crm-api/repository"
	"crm-api/websocket"
	"crm-api/workflow"
)

// workflowMailer adapts the mail package's contract to the id-only one the
// workflow engine consumes.
type workflowMailer struct {
	mail.Mailer
}

func (a workflowMailer) Send(ctx context.Context, userID int, to, subject, body string) (string, error) {
	sent, err := a.SendMessage(ctx, userID, to, subject, body)
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be set and at least 32 characters")
	}

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		log.Printf("DB connection failed: %v, retrying in 2s...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("Could not connect to database:", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Migration driver error:", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		log.Fatal("Migration init error:", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("Migration failed:", err)
	}

	usersRepo := repository.NewUsersRepository(db)
	clientsRepo := repository.NewClientsRepository(db)
	tasksRepo := repository.NewTasksRepository(db)
	notesRepo := repository.NewNotesRepository(db)
	savedViewsRepo := repository.NewSavedViewsRepository(db)
	workflowsRepo := repository.NewWorkflowsRepository(db)
	templatesRepo := repository.NewEmailTemplatesRepository(db)
	emailsRepo := repository.NewEmailsRepository(db)
	googleTokensRepo := repository.NewGoogleTokensRepository(db)

	if err := initializers.InitDefaults(savedViewsRepo); err != nil {
		log.Fatal("Failed to seed system views:", err)
	}

	// Set Gin to release mode in production
	if os.Getenv("GIN_MODE") == "release" || strings.ToLower(os.Getenv("APP_ENV")) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Structured request ID and JSON access logs
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	// Panic recovery
	r.Use(gin.Recovery())

	// Configure trusted proxies for correct client IP handling in production
	trustedProxies := os.Getenv("TRUSTED_PROXIES")
	if trustedProxies != "" {
		parts := strings.Split(trustedProxies, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := r.SetTrustedProxies(parts); err != nil {
			log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
		}
	} else {
		// Default to loopback only; override via TRUSTED_PROXIES in production
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	}

	r.Use(middleware.CORSMiddleware())
	// Apply rate limiting globally after CORS but before routes
	r.Use(middleware.RateLimitMiddleware())

	// Real-time notifications over WebSocket
	hub := websocket.NewHub()
	notifier := &notify.WSNotifier{Hub: hub}

	mailer := mail.NewGmailMailer(googleTokensRepo,
		os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))

	engine := workflow.NewEngine(workflowsRepo, clientsRepo, tasksRepo, templatesRepo,
		workflowMailer{mailer}).WithNotifier(notifier)

	resolver := query.NewResolver(savedViewsRepo)

	authHandler := handlers.NewAuthHandler(usersRepo)
	clientsHandler := handlers.NewClientsHandler(clientsRepo, resolver, engine)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, clientsRepo, resolver)
	notesHandler := handlers.NewNotesHandler(notesRepo, clientsRepo)
	savedViewsHandler := handlers.NewSavedViewsHandler(savedViewsRepo, usersRepo)
	workflowsHandler := handlers.NewWorkflowsHandler(workflowsRepo, engine)
	templatesHandler := handlers.NewEmailTemplatesHandler(templatesRepo)
	emailsHandler := handlers.NewEmailsHandler(emailsRepo, clientsRepo, mailer)

	// Public endpoints
	r.GET("/health", handlers.HealthCheck)

	// Public endpoints with stricter auth rate limit
	authPublic := r.Group("/", middleware.RateLimitAuthMiddleware())
	authPublic.POST("/register", authHandler.Register)
	authPublic.POST("/login", func(c *gin.Context) {
		c.Set("jwtSecret", jwtSecret)
		authHandler.Login(c)
	})

	auth := r.Group("/", handlers.AuthMiddleware(jwtSecret))
	{
		auth.GET("/ws", websocket.ServeWS(hub))

		auth.GET("/clients", clientsHandler.List)
		auth.POST("/clients", clientsHandler.Create)
		auth.GET("/clients/:id", clientsHandler.Get)
		auth.PATCH("/clients/:id", clientsHandler.Update)
		auth.DELETE("/clients/:id", clientsHandler.Delete)

		auth.GET("/tasks", tasksHandler.List)
		auth.POST("/tasks", tasksHandler.Create)
		auth.GET("/tasks/:id", tasksHandler.Get)
		auth.PATCH("/tasks/:id", tasksHandler.Update)
		auth.DELETE("/tasks/:id", tasksHandler.Delete)

		auth.GET("/notes", notesHandler.List)
		auth.POST("/notes", notesHandler.Create)
		auth.PATCH("/notes/:id", notesHandler.Update)
		auth.DELETE("/notes/:id", notesHandler.Delete)

		auth.GET("/saved-views", savedViewsHandler.List)
		auth.POST("/saved-views", savedViewsHandler.Create)
		auth.PATCH("/saved-views/:id", savedViewsHandler.Update)
		auth.DELETE("/saved-views/:id", savedViewsHandler.Delete)

		auth.GET("/workflows", workflowsHandler.List)
		auth.POST("/workflows", workflowsHandler.Create)
		auth.POST("/workflows/preview-count", workflowsHandler.PreviewCount)
		auth.GET("/workflows/:id", workflowsHandler.Get)
		auth.PATCH("/workflows/:id", workflowsHandler.Update)
		auth.DELETE("/workflows/:id", workflowsHandler.Delete)
		auth.POST("/workflows/:id/run-matches", workflowsHandler.RunMatches)

		auth.GET("/email-templates", templatesHandler.List)
		auth.POST("/email-templates", templatesHandler.Create)
		auth.PATCH("/email-templates/:id", templatesHandler.Update)
		auth.DELETE("/email-templates/:id", templatesHandler.Delete)

		auth.GET("/emails", emailsHandler.List)
		auth.POST("/emails/send", emailsHandler.Send)
	}

	r.Run(":8080")
}
