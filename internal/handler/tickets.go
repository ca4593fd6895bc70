package handler

import (
	"net/http"
	"strconv"

	"fornoro/internal/apierror"
	"fornoro/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ReencolarTickets moves failed ticket jobs from the DLQ back to the ticket queue.
// Query param n bounds how many (default 50).
func ReencolarTickets(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.DefaultQuery("n", "50"))
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, apierror.New("n debe ser un entero positivo"))
			return
		}
		moved, err := worker.Reencolar(c.Request.Context(), rdb, worker.QueueTickets, n)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reencolados": moved})
	}
}
