// Package handlers contains reusable HTTP building blocks for the API server:
// health checks and middleware.
//
// # Health Checks
//
// The HealthChecker runs named checks in parallel, each with its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("redis", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("health check failed: %s", status.Message)
//	}
//
// # Admin Authentication
//
// Admin endpoints are protected by a single key compared against a bcrypt hash,
// so the plaintext key never has to live in configuration:
//
//	auth, err := handlers.NewAdminKeyAuth("X-Admin-Key", cfg.Admin.KeyHash)
//	mux.Handle("POST /api/v1/admin/daily", auth.Middleware(h))
//
// # Middleware Chain
//
//	h := handlers.ChainHandler(mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1 << 20),
//	)
package handlers
