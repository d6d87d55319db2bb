package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// requestIDKey 与路由层 RequestIDMiddleware 写入的上下文键一致
const requestIDKey = "request_id"

// Response 统一响应结构，业务结果通过 status_code 表达，HTTP 状态恒为 200
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	RequestID  string      `json:"request_id,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, newResponse(c, CodeOK, "success", data))
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   newResponse(c, CodeOK, "success", data),
		Pagination: pagination,
	})
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	c.JSON(http.StatusOK, newResponse(c, statusCode, msg, nil))
}

// Unauthorized 401 响应并中断后续处理
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
	c.Abort()
}

// Forbidden 403 响应并中断后续处理
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
	c.Abort()
}

// BuildPagination 构建分页信息
func BuildPagination(page, pageSize int, total int64) Pagination {
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}

func newResponse(c *gin.Context, code int, msg string, data interface{}) Response {
	return Response{
		StatusCode: code,
		Msg:        msg,
		Data:       data,
		RequestID:  requestID(c),
	}
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get(requestIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
