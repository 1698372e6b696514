package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/0xSardius/dalaran/src/api/config"
	"github.com/0xSardius/dalaran/src/api/data"
	"github.com/0xSardius/dalaran/src/api/governance"
	"github.com/0xSardius/dalaran/src/api/ledger"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, lc *ledger.Client) *gin.Engine {
	r := gin.Default()
	attachRoutes(r, cfg, db, rdb, lc)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, lc *ledger.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	members := governance.NewMembers(db)
	votes := governance.NewVotes(db)
	proposals := governance.NewProposals(db)
	executor := governance.NewExecutor(db, lc, data.NewRedisLocker(rdb), cfg.FallbackAddress)

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	communityH := NewCommunities(db)
	proposalH := NewProposals(proposals, votes, members, executor, rdb)
	voteH := NewVotes(votes, rdb)
	commentH := NewComments(db, rdb)
	treasuryH := NewTreasury(db, lc)

	limiter := NewRateLimiter(30, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)), RateLimitMiddleware(limiter))
		{
			secured.POST("/communities", communityH.Create)
			secured.POST("/communities/join", communityH.Join)
			secured.GET("/communities/:id", communityH.Get)
			secured.GET("/communities/:id/proposals", proposalH.List)

			secured.POST("/proposals", proposalH.Create)
			secured.GET("/proposals/:id/tally", proposalH.Tally)
			secured.POST("/proposals/:id/execute", proposalH.Execute)
			secured.GET("/proposals/:id/comments", commentH.List)

			secured.POST("/votes", voteH.Cast)

			secured.POST("/comments", commentH.Create)
			secured.POST("/comments/:id/react", commentH.React)

			secured.GET("/treasury/:communityID", treasuryH.Get)
		}
	}
}
