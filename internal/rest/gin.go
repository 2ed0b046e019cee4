// Package rest exposes the raffle's public HTTP surface.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewServer(addr string) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return r, srv
}
