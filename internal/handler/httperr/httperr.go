package httperr

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope every error reply uses. Status travels out of
// band so the error middleware can replay the envelope as-is.
type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

func NewResponse(status int, msg string, detail any) Response {
	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail
	return resp
}

// AbortWithError writes the envelope and, when a cause is given, records it
// on the context so request logging sees the original error.
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	resp := NewResponse(status, msg, detail)

	if err != nil {
		_ = c.Error(gin.Error{
			Err:  err,
			Type: gin.ErrorTypePublic,
			Meta: resp,
		})
	}
	c.AbortWithStatusJSON(status, resp)
}
