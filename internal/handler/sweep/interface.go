package sweep

import "github.com/gin-gonic/gin"

type IHandler interface {
	Get(c *gin.Context)
	Retry(c *gin.Context)
}
