package webhook

import "github.com/gin-gonic/gin"

type IHandler interface {
	FiatPayment(c *gin.Context)
}
