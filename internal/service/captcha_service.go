package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"

	"github.com/mojocn/base64Captcha"
)

const captchaImageSource = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验载荷
type CaptchaVerifyPayload struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 可下发给前端的验证码配置
type CaptchaPublicSetting struct {
	Provider         string `json:"provider"`
	RegisterRequired bool   `json:"register_required"`
	TurnstileSiteKey string `json:"turnstile_site_key,omitempty"`
}

type turnstileVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// CaptchaService 验证码服务
// 按场景开关决定是否校验，图片验证码答案保存在进程内存，多实例部署需使用 turnstile。
type CaptchaService struct {
	cfg        config.CaptchaConfig
	httpClient *http.Client

	mu         sync.Mutex
	imageStore base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	return &CaptchaService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Turnstile.TimeoutMS) * time.Millisecond},
	}
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch cfg.Provider {
	case constants.CaptchaProviderImage, constants.CaptchaProviderTurnstile:
	default:
		cfg.Provider = constants.CaptchaProviderNone
	}
	img := &cfg.Image
	img.Length = clampInt(img.Length, 4, 8, 5)
	img.Width = clampInt(img.Width, 100, 480, 240)
	img.Height = clampInt(img.Height, 30, 200, 80)
	img.NoiseCount = clampInt(img.NoiseCount, 0, 20, 2)
	img.ShowLine = clampInt(img.ShowLine, 0, 20, 2)
	img.ExpireSeconds = clampInt(img.ExpireSeconds, 30, 3600, 300)
	img.MaxStore = clampInt(img.MaxStore, 100, 100000, 10240)
	cfg.Turnstile.SiteKey = strings.TrimSpace(cfg.Turnstile.SiteKey)
	cfg.Turnstile.SecretKey = strings.TrimSpace(cfg.Turnstile.SecretKey)
	cfg.Turnstile.VerifyURL = strings.TrimSpace(cfg.Turnstile.VerifyURL)
	cfg.Turnstile.TimeoutMS = clampInt(cfg.Turnstile.TimeoutMS, 500, 10000, 2000)
	return cfg
}

func clampInt(value, minValue, maxValue, fallback int) int {
	if value < minValue || value > maxValue {
		return fallback
	}
	return value
}

// sceneEnabled 场景是否需要验证码
func (s *CaptchaService) sceneEnabled(scene string) bool {
	if s == nil || s.cfg.Provider == constants.CaptchaProviderNone {
		return false
	}
	switch scene {
	case constants.CaptchaSceneRegister:
		return s.cfg.Scenes.Register
	default:
		return false
	}
}

// PublicSetting 前端渲染验证码所需的配置
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	if s == nil {
		return CaptchaPublicSetting{Provider: constants.CaptchaProviderNone}
	}
	setting := CaptchaPublicSetting{
		Provider:         s.cfg.Provider,
		RegisterRequired: s.sceneEnabled(constants.CaptchaSceneRegister),
	}
	if s.cfg.Provider == constants.CaptchaProviderTurnstile {
		setting.TurnstileSiteKey = s.cfg.Turnstile.SiteKey
	}
	return setting
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}
	img := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		img.Height,
		img.Width,
		img.NoiseCount,
		img.ShowLine,
		img.Length,
		captchaImageSource,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	id, b64s, _, err := base64Captcha.NewCaptcha(driver, s.store()).Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，场景未开启时直接通过
func (s *CaptchaService) Verify(ctx context.Context, scene string, payload CaptchaVerifyPayload, clientIP string) error {
	if !s.sceneEnabled(scene) {
		return nil
	}
	switch s.cfg.Provider {
	case constants.CaptchaProviderImage:
		captchaID := strings.TrimSpace(payload.CaptchaID)
		captchaCode := strings.TrimSpace(payload.CaptchaCode)
		if captchaID == "" || captchaCode == "" {
			return ErrCaptchaRequired
		}
		answer := s.store().Get(captchaID, true)
		if answer == "" || !strings.EqualFold(answer, captchaCode) {
			return ErrCaptchaInvalid
		}
		return nil
	case constants.CaptchaProviderTurnstile:
		token := strings.TrimSpace(payload.TurnstileToken)
		if token == "" {
			return ErrCaptchaRequired
		}
		return s.verifyTurnstile(ctx, token, strings.TrimSpace(clientIP))
	default:
		return ErrCaptchaConfigInvalid
	}
}

func (s *CaptchaService) verifyTurnstile(ctx context.Context, token, clientIP string) error {
	cfg := s.cfg.Turnstile
	if cfg.SecretKey == "" || cfg.VerifyURL == "" {
		return ErrCaptchaConfigInvalid
	}

	form := url.Values{}
	form.Set("secret", cfg.SecretKey)
	form.Set("response", token)
	if clientIP != "" {
		form.Set("remoteip", clientIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	defer resp.Body.Close()

	var result turnstileVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	if !result.Success {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) store() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore == nil {
		s.imageStore = base64Captcha.NewMemoryStore(s.cfg.Image.MaxStore, time.Duration(s.cfg.Image.ExpireSeconds)*time.Second)
	}
	return s.imageStore
}
