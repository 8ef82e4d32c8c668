// Package auth provides authentication functionality for the application.
//
// Accounts are authenticated against the local database with Argon2id
// password hashing. The package enforces the configurable lockout policy
// (failed attempts and lockout duration come from the settings store) and
// supports optional multi-factor auth with TOTP codes.
//
// # Access Levels
//
// Authorization is level based rather than permission based. Each account
// carries a models.UserLevel (basic, admin or owner) and routes are
// protected with the RequireLevel middleware:
//
//	// Initialize auth service
//	authService := auth.NewService(db)
//
//	// Authenticate in a login handler
//	account, err := authService.Authenticate(ctx, username, password, mfaCode)
//
//	// Protect a route with a minimum level
//	app.Delete("/api/galleries/:id",
//	    auth.RequireLevel(models.UserLevelAdmin),
//	    handler,
//	)
package auth
