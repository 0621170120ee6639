// Package http serves the provider redirect and the wallet actions on a loopback address.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin"
)

// SetupRouter sets up the Gin router. metrics may be nil.
func SetupRouter(client zklogin.Client, metrics http.Handler, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), LoopbackOnly())

	handlers := NewWalletHandlers(client)

	router.GET("/", handlers.Landing)
	router.POST("/callback", handlers.Callback)

	router.POST("/login", handlers.Login)
	router.POST("/epoch", handlers.FetchEpoch)
	router.POST("/advance", handlers.Advance)
	router.GET("/session", handlers.Session)
	router.POST("/reset", handlers.Reset)
	router.DELETE("/salt", handlers.DeleteSalt)

	router.GET("/balance", handlers.Balance)
	router.POST("/transactions", handlers.Transfer)
	router.GET("/nfts", handlers.ListNFTs)
	router.POST("/nfts", handlers.Mint)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return router
}
