package response

import "github.com/gin-gonic/gin"

const (
	CodeSuccess = 0
)

const (
	ErrUnauthorized   = 10001
	ErrTokenExpired   = 10002
	ErrForbidden      = 10003
	ErrInvalidRequest = 10004
)

const (
	ErrPassNotFound     = 20001
	ErrInvalidPackage   = 20002
	ErrInvalidExtension = 20003
)

const (
	ErrListingNotFound    = 30001
	ErrInvalidListingType = 30002
)

const (
	ErrNotListingOwner = 40001
)

const (
	ErrNotificationNotFound = 50001
)

const (
	ErrPaymentUnavailable = 60001
)

const (
	ErrRateLimited = 90002
	ErrInternal    = 99999
)

type Response struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Paginated(c *gin.Context, data any, page, pageSize int, total int64) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
		Pagination: &Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func Fail(c *gin.Context, httpStatus, appCode int, message string) {
	c.JSON(httpStatus, Response{
		Code:    appCode,
		Message: message,
	})
}
