package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/flashlet-api/internal/api/middleware"
	"github.com/phrazzld/flashlet-api/internal/store"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Users       *UserHandler
	Sets        *SetHandler
	Preferences *PreferenceHandler
}

// RegisterRoutes mounts the account, set and preference endpoints on r.
func RegisterRoutes(r chi.Router, h Handlers, authMW *middleware.AuthMiddleware) {
	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Post("/users/signup", h.Users.SignUp)
		r.Post("/users/signin", h.Users.SignIn)
		r.Post("/users/signin/google", h.Users.SignInWithProvider(store.ProviderGoogle))
		r.Post("/users/signin/facebook", h.Users.SignInWithProvider(store.ProviderFacebook))
		r.Post("/users/password/forgot", h.Users.ForgotPassword)
		r.Post("/users/password/reset", h.Users.ResetPassword)
		r.Get("/users/{username}", h.Users.GetProfile)
		r.Get("/users/{username}/sets", h.Users.ListPublicSets)
		r.Get("/sets/search", h.Sets.Search)
	})

	// Private sets are visible to their owner when a token is presented
	r.Group(func(r chi.Router) {
		r.Use(authMW.OptionalAuthenticate)
		r.Get("/sets/{id}", h.Sets.Get)
	})

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.Delete("/users/signout", h.Users.SignOut)
		r.Delete("/users/signout/all", h.Users.SignOutAll)
		r.Post("/users/password/change", h.Users.ChangePassword)
		r.Get("/users/me", h.Users.Me)
		r.Patch("/users/me", h.Users.UpdateProfile)
		r.Delete("/users/me", h.Users.RemoveAccount)

		r.Get("/preferences", h.Preferences.Get)
		r.Put("/preferences", h.Preferences.Update)

		r.Post("/sets", h.Sets.Create)
		r.Get("/sets", h.Sets.ListMine)
		r.Put("/sets/{id}", h.Sets.Update)
		r.Delete("/sets/{id}", h.Sets.Delete)
	})
}
