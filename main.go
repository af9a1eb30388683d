package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"backend/internal/addressbook"
	"backend/internal/cache"
	"backend/internal/cart"
	"backend/internal/catalog"
	"backend/internal/config"
	"backend/internal/coupon"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/notify"
	"backend/internal/orders"
	"backend/internal/payment"
	"backend/internal/queue"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureCouponIndexes(db); err != nil {
		log.Printf("coupon index warning: %v", err)
	}
	if err := database.EnsureMenuItemIndexes(db); err != nil {
		log.Printf("menu item index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.AppEnv.RedisAddr,
		Password: config.AppEnv.RedisPassword,
	})

	tasks := queue.New(redisClient, queue.DefaultPolicy)
	notifier := notify.NewNotifier(tasks)

	couponValidator := coupon.NewValidator(coupon.NewMongoRepository(db))
	catalogReader := catalog.NewReader(db)
	cartCache := cache.NewCartCache(redisClient, config.AppEnv.CartTTL)
	cartService := cart.NewService(cartCache, catalogReader, couponValidator)

	addresses := addressbook.NewBook(db)
	payments := payment.NewProvider(config.AppEnv.PaymentSecret)

	orderStore := orders.NewMongoStore(db)
	engine := orders.NewEngine(orderStore, tasks, notifier)
	committer := orders.NewCommitter(orderStore, cartService, addresses, couponValidator, payments, engine, notifier)
	orderService := orders.NewService(orderStore, engine, cartService, payments, notifier)

	worker := queue.NewWorker(tasks, config.AppEnv.QueueWorkers)
	worker.Handle(orders.TaskOrderStatus, engine.HandleStatusTask)
	worker.Handle(notify.TaskNotification, notify.HandleDispatch)

	workerCtx, stopWorker := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopWorker()
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			log.Println("queue worker stopped:", err)
		}
	}()

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL, config.AppEnv.RefreshTokenTTL))
	r.POST("/auth/login", handlers.Login(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL, config.AppEnv.RefreshTokenTTL))
	r.POST("/auth/refresh", handlers.Refresh(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL, config.AppEnv.RefreshTokenTTL))
	r.POST("/auth/logout", handlers.Logout(db))
	r.POST("/admin/auth/login", handlers.AdminLogin(db, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL, config.AppEnv.RefreshTokenTTL))

	r.GET("/coupons", handlers.GetCoupons(couponValidator))
	r.GET("/restaurants", handlers.GetRestaurants(db))
	r.GET("/restaurants/:id", handlers.GetRestaurant(db))
	r.GET("/restaurants/:id/menu", handlers.GetRestaurantMenu(db))
	r.GET("/restaurants/:id/menu/categories", handlers.GetMenuCategories(db))

	api := r.Group("/")
	api.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		api.GET("/me", handlers.GetMe(db))
		api.GET("/me/addresses", handlers.GetUserAddresses(addresses))
		api.POST("/me/addresses", handlers.CreateUserAddress(addresses))
		api.PUT("/me/addresses/:id", handlers.UpdateUserAddress(addresses))
		api.DELETE("/me/addresses/:id", handlers.DeleteUserAddress(addresses))
		api.GET("/me/favorites", handlers.GetUserFavorites(db))
		api.POST("/me/favorites", handlers.AddUserFavorite(db))
		api.DELETE("/me/favorites/:menuItemId", handlers.DeleteUserFavorite(db))

		api.GET("/cart", handlers.GetCart(cartService))
		api.POST("/cart/items", handlers.AddCartItem(cartService))
		api.PATCH("/cart/items/:lineId", handlers.UpdateCartItem(cartService))
		api.DELETE("/cart/items/:lineId", handlers.RemoveCartItem(cartService))
		api.DELETE("/cart", handlers.ClearCart(cartService))
		api.POST("/cart/coupon", handlers.ApplyCoupon(cartService))
		api.DELETE("/cart/coupon", handlers.RemoveCoupon(cartService))

		api.POST("/orders", handlers.CreateOrder(db, committer, config.AppEnv.CheckoutTimeout))
		api.GET("/orders", handlers.GetOrders(orderService))
		api.GET("/orders/:id", handlers.GetOrder(orderService))
		api.POST("/orders/:id/cancel", handlers.CancelOrder(engine))
		api.POST("/orders/:id/reorder", handlers.ReorderOrder(orderService))
		api.POST("/orders/payment/verify", handlers.VerifyPayment(orderService))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/menu-items", handlers.GetAllMenuItems(db))
		admin.POST("/menu-items", handlers.CreateMenuItem(db))
		admin.PUT("/menu-items/:id", handlers.UpdateMenuItem(db))
		admin.DELETE("/menu-items/:id", handlers.DeleteMenuItem(db))
		admin.PUT("/menu-items/:id/image", handlers.UploadMenuItemImage(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(engine))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
