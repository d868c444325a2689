package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tableside-go/assoc"
	"tableside-go/events"
	"tableside-go/handlers"
	"tableside-go/lifecycle"
	"tableside-go/models"
	"tableside-go/tokens"
	"tableside-go/utils"
)

func main() {

	cfg, err := utils.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Env)
	utils.SetJWTSecret(cfg.JWTSecret)

	/* DATABASE SETUP STARTS */

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.Database.URI)
	default:
		dialector = sqlite.Open(cfg.Database.URI)
	}

	db, openDbErr := gorm.Open(dialector, &gorm.Config{})
	if openDbErr != nil {
		log.Fatalf("Failed to connect to database: %v", openDbErr)
	}

	migrateErr := db.AutoMigrate(
		&models.User{},
		&models.Venue{},
		&models.MenuItem{},
		&models.TableToken{},
		&models.Order{},
		&models.OrderItem{},
		&models.ServiceRequest{},
		&models.ItemAssociation{},
	)
	if migrateErr != nil {
		log.Fatalf("Failed to migrate database: %v", migrateErr)
	}
	/* DATABASE SETUP ENDS */

	/* ENGINE WIRING STARTS */
	tokenAuthority := tokens.NewAuthority(db)
	associations := assoc.NewEngine(db, logger)

	fanout := events.NewFanout(logger, associations)
	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		defer publisher.Close()
		fanout.Subscribe(publisher)
	}

	handlers.DB = db
	handlers.Tokens = tokenAuthority
	handlers.Orders = lifecycle.NewOrderEngine(db, tokenAuthority, fanout, cfg.PrepTime(), logger)
	handlers.Calls = lifecycle.NewServiceRequestEngine(db, tokenAuthority, logger)
	handlers.Recommender = associations
	handlers.PollHints.OrderTrackerSeconds = cfg.Poll.OrderTrackerSeconds
	handlers.PollHints.DashboardOrdersSeconds = cfg.Poll.DashboardOrdersSeconds
	handlers.PollHints.DashboardCallsSeconds = cfg.Poll.DashboardCallsSeconds
	/* ENGINE WIRING ENDS */

	/* ROUTING STARTS */
	router := gin.Default()

	var corsConfig cors.Config
	if cfg.Env == "debug" || cfg.Env == "development" {
		// Development: Allow all origins
		corsConfig = cors.Config{
			AllowOrigins:     []string{"*"}, // Allows all origins
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true, // Be cautious with this in conjunction with AllowOrigins: "*"
			MaxAge:           12 * time.Hour,
		}
	} else {
		// Production: Be specific and secure
		corsConfig = cors.Config{
			AllowOrigins:     []string{"https://your-production-frontend.com"}, // Replace with your actual frontend domain
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
	}

	router.Use(cors.New(corsConfig))

	// --- Authentication Routes ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", handlers.RegisterHandler)
		authGroup.POST("/login", handlers.LoginHandler)
	}

	// --- Public/Diner Venue and Menu Routes --- (Auth token not needed)
	publicGroup := router.Group("/public")
	{
		publicGroup.GET("/venues", handlers.ListVenuesHandler)
		publicGroup.GET("/venues/:venue_id", handlers.GetVenueHandler)
		publicGroup.GET("/venues/:venue_id/menu", handlers.GetVenueMenuForDinersHandler)
		publicGroup.GET("/venues/:venue_id/menu/:item_id/recommendations", handlers.GetRecommendationsHandler)
	}

	// --- Table Session Routes --- (table token in the request body, not JWT)
	tableGroup := router.Group("/table")
	{
		tableGroup.POST("/orders", handlers.PlaceOrderHandler)
		tableGroup.GET("/orders/:order_id", handlers.TrackOrderHandler)
		tableGroup.POST("/calls", handlers.CreateCallHandler)
	}

	// --- Merchant Protected Routes ---
	merchantRoutes := router.Group("/merchant", handlers.AuthMiddleware())
	{
		// Merchant Venue Management
		venueRoutes := merchantRoutes.Group("/venues")
		{
			venueRoutes.POST("", handlers.CreateVenueHandler)
			venueRoutes.GET("", handlers.GetMerchantVenuesHandler) // Gets venues for the authenticated Merchant

			venueRoutes.GET("/:venue_id", handlers.GetVenueHandler)
			venueRoutes.PUT("/:venue_id", handlers.UpdateVenueHandler)
			venueRoutes.DELETE("/:venue_id", handlers.DeleteVenueHandler)

			// Merchant Menu Item Management (nested under specific venue)
			menuItemRoutes := venueRoutes.Group("/:venue_id/menuitems")
			{
				menuItemRoutes.POST("", handlers.CreateMenuItemHandler)
				menuItemRoutes.GET("", handlers.GetMenuItemsForVenueHandler)
				menuItemRoutes.PUT("/:item_id", handlers.UpdateMenuItemHandler)
				menuItemRoutes.DELETE("/:item_id", handlers.DeleteMenuItemHandler)
			}

			// Table Token Management (nested under specific venue)
			tableTokenRoutes := venueRoutes.Group("/:venue_id/tables")
			{
				tableTokenRoutes.POST("", handlers.IssueTableTokenHandler)
				tableTokenRoutes.GET("", handlers.ListTableTokensHandler)
				tableTokenRoutes.DELETE("/:token_id", handlers.DeactivateTableTokenHandler)
			}

			// Merchant Order and Waiter Call Feeds (for a specific venue they own)
			venueRoutes.GET("/:venue_id/orders", handlers.GetMerchantOrdersHandler)
			venueRoutes.GET("/:venue_id/calls", handlers.GetMerchantCallsHandler)
		}

		// Merchant Order/Call Management (venue-agnostic)
		merchantRoutes.PUT("/orders/:order_id/status", handlers.UpdateOrderStatusHandler)
		merchantRoutes.PUT("/calls/:call_id/resolve", handlers.ResolveCallHandler)
	}

	/* ROUTING ENDS */

	logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
