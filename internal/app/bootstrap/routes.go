// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	articlesfeature "github.com/dalemusser/gatherhub/internal/app/features/articles"
	authgooglefeature "github.com/dalemusser/gatherhub/internal/app/features/authgoogle"
	communitiesfeature "github.com/dalemusser/gatherhub/internal/app/features/communities"
	eventsfeature "github.com/dalemusser/gatherhub/internal/app/features/events"
	healthfeature "github.com/dalemusser/gatherhub/internal/app/features/health"
	profilefeature "github.com/dalemusser/gatherhub/internal/app/features/profile"
	spacesfeature "github.com/dalemusser/gatherhub/internal/app/features/spaces"
	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
	"github.com/dalemusser/gatherhub/internal/app/store/cascade"
	communitystore "github.com/dalemusser/gatherhub/internal/app/store/communities"
	eventstore "github.com/dalemusser/gatherhub/internal/app/store/events"
	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	spacestore "github.com/dalemusser/gatherhub/internal/app/store/spaces"
	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/app/system/blobstore"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. GatherHub builds the shared
// stores once, wires the cascade deleter over them, and mounts a JSON
// feature router per API area. Everything except /health and the login
// endpoints sits behind the bearer-token middleware.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	access, err := authtoken.NewManager(appCfg.TokenSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("access token manager init failed", zap.Error(err))
		return nil, err
	}

	blobs, err := blobstore.New(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		logger.Error("blob storage init failed", zap.Error(err))
		return nil, err
	}

	// Shared stores.
	users := userstore.New(db)
	tokens := tokenstore.New(db, appCfg.RefreshTTL)
	memberships := membershipstore.New(db, logger)
	communities := communitystore.New(db)
	spaces := spacestore.New(db)
	events := eventstore.New(db, logger)
	articles := articlestore.New(db)
	deleter := cascade.New(memberships, communities, spaces, events, articles, blobs, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Uploaded images, served from local storage.
	r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))

	// Authentication: Google sign-in, token refresh, logout.
	authHandler := authgooglefeature.NewHandler(users, tokens, access,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	if !authHandler.IsConfigured() {
		logger.Warn("Google OAuth is not configured; sign-in is disabled")
	}
	r.Mount("/auth", authgooglefeature.Routes(authHandler, access))

	// Everything below requires a valid access token.
	r.Group(func(r chi.Router) {
		r.Use(authz.RequireUser(access))

		profileHandler := profilefeature.NewHandler(users, memberships, communities, spaces, events, logger)
		r.Mount("/profile", profilefeature.Routes(profileHandler))

		communitiesHandler := communitiesfeature.NewHandler(communities, memberships, users, deleter, blobs, logger)
		r.Mount("/communities", communitiesfeature.Routes(communitiesHandler))

		spacesHandler := spacesfeature.NewHandler(spaces, memberships, users, deleter, blobs, logger)
		r.Mount("/spaces", spacesfeature.Routes(spacesHandler))

		eventsHandler := eventsfeature.NewHandler(events, memberships, users, deleter, blobs, logger)
		r.Mount("/events", eventsfeature.Routes(eventsHandler))

		articlesHandler := articlesfeature.NewHandler(articles, memberships, deleter, blobs, logger)
		r.Mount("/articles", articlesfeature.Routes(articlesHandler))
	})

	return r, nil
}
