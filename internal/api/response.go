package api

import (
	"github.com/gin-gonic/gin"

	"github.com/steemit/birthday-payments/internal/models"
)

// Response is the envelope every payment endpoint answers with
type Response struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Message    string             `json:"message,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
	Error      string             `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func sendData(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func sendMessage(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Success: true,
		Message: message,
	})
}

// sendError writes e and aborts the chain. The cause of a server error is
// only shown when development is set.
func sendError(c *gin.Context, e *Error, development bool) {
	resp := Response{
		Success: false,
		Message: e.Message,
		Errors:  e.Errors,
	}
	if e.Code >= 500 {
		resp.Error = msgInternalError
		if development && e.Err != nil {
			resp.Error = e.Err.Error()
		}
	}
	c.AbortWithStatusJSON(e.Code, resp)
}
