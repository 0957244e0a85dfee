// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/vedants521/CancelFillMD/internal/booking"
	"github.com/vedants521/CancelFillMD/internal/events"
	"github.com/vedants521/CancelFillMD/internal/fill"
	"github.com/vedants521/CancelFillMD/internal/matching"
	"github.com/vedants521/CancelFillMD/internal/notifications"
	"github.com/vedants521/CancelFillMD/internal/shared/config"
	"github.com/vedants521/CancelFillMD/internal/shared/database"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher events.Publisher
	log       *logger.Logger

	// Shared repositories, built once in NewRouter
	slotRepo   slots.Repository
	entryRepo  waitlist.Repository
	tokenRepo  tokens.Repository
	notifyRepo notifications.Repository

	dispatcher  notifications.Dispatcher
	fillService fill.Service
}

// NewRouter creates a new router instance and wires the engine's
// component graph.
func NewRouter(cfg *config.Config, db *database.DB, publisher events.Publisher) *Router {
	appLogger := logger.GetDefault()

	r := &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		log:       appLogger,
	}

	pg := db.GetPostgreSQL()
	r.slotRepo = slots.NewRepository(pg)
	r.entryRepo = waitlist.NewRepository(pg)
	r.tokenRepo = tokens.NewRepository(pg)
	r.notifyRepo = notifications.NewRepository(pg)

	r.dispatcher = notifications.NewDispatcher(notifications.DispatcherDeps{
		Repo:       r.notifyRepo,
		SMS:        newSMSSender(cfg),
		Email:      newEmailSender(cfg),
		Notified:   r.entryRepo,
		Fill:       cfg.Fill,
		AppURL:     cfg.AppURL,
		ClinicName: cfg.ClinicName,
		StaffEmail: cfg.Email.StaffEmail,
		Logger:     appLogger,
	})

	matcher := matching.NewMatcher(r.entryRepo, r.tokenRepo)
	issuer := tokens.NewIssuer(r.tokenRepo)

	r.fillService = fill.NewService(fill.ServiceDeps{
		SlotRepo:   r.slotRepo,
		EntryRepo:  r.entryRepo,
		Matcher:    matcher,
		Issuer:     issuer,
		Dispatcher: r.dispatcher,
		Publisher:  publisher,
		Fill:       cfg.Fill,
		Logger:     appLogger,
	})

	return r
}

// FillService exposes the fill orchestrator so the server can hand it to
// the reaper.
func (r *Router) FillService() fill.Service {
	return r.fillService
}

// TokenRepository exposes the token store for the reaper.
func (r *Router) TokenRepository() tokens.Repository {
	return r.tokenRepo
}

// SlotRepository exposes the slot store for the reaper.
func (r *Router) SlotRepository() slots.Repository {
	return r.slotRepo
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupWaitlistRoutes(api)
		r.setupSlotRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cancelfillmd-engine",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cancelfillmd-engine",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupWaitlistRoutes configures patient waitlist routes
func (r *Router) setupWaitlistRoutes(rg *gin.RouterGroup) {
	waitlistService := waitlist.NewService(r.entryRepo)
	waitlistController := waitlist.NewController(waitlistService)

	waitlist.SetupWaitlistRoutes(rg, waitlistController)
}

// setupSlotRoutes configures schedule and cancellation routes
func (r *Router) setupSlotRoutes(rg *gin.RouterGroup) {
	slotService := slots.NewService(r.slotRepo)
	slotController := slots.NewController(slotService, r.fillService)

	slots.SetupSlotRoutes(rg, slotController)
}

// setupBookingRoutes configures the public claim route
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	resolver := booking.NewResolver(booking.ResolverDeps{
		Repo:       booking.NewRepository(r.db.GetPostgreSQL()),
		TokenRepo:  r.tokenRepo,
		SlotRepo:   r.slotRepo,
		EntryRepo:  r.entryRepo,
		Dispatcher: r.dispatcher,
		Publisher:  r.publisher,
		Logger:     r.log,
	})
	bookingController := booking.NewController(resolver)

	booking.SetupBookingRoutes(rg, bookingController, nil)
}

// newSMSSender picks the real Twilio sender when credentials are
// configured, the mock otherwise.
func newSMSSender(cfg *config.Config) notifications.SMSSender {
	if cfg.SMS.Enabled() {
		return notifications.NewTwilioSMSSender(cfg.SMS)
	}
	return notifications.NewMockSMSSender()
}

func newEmailSender(cfg *config.Config) notifications.EmailSender {
	if cfg.Email.Enabled() {
		return notifications.NewSMTPEmailSender(cfg.Email)
	}
	return notifications.NewMockEmailSender()
}
