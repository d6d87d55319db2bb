package public

import (
	"errors"

	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCaptchaSetting 获取前端所需的验证码配置
func (h *Handler) GetCaptchaSetting(c *gin.Context) {
	response.Success(c, h.CaptchaService.PublicSetting())
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaConfigInvalid):
			respondError(c, response.CodeBadRequest, "error.captcha_unavailable", nil)
		default:
			respondError(c, response.CodeInternal, "error.captcha_generate_failed", err)
		}
		return
	}
	response.Success(c, challenge)
}
