package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"
)

func newImageCaptchaService(register bool) *CaptchaService {
	return NewCaptchaService(config.CaptchaConfig{
		Provider: constants.CaptchaProviderImage,
		Scenes:   config.CaptchaSceneConfig{Register: register},
	})
}

func TestCaptchaDisabledProviderPasses(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "unknown", Scenes: config.CaptchaSceneConfig{Register: true}})
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("provider none should skip verification, got %v", err)
	}
	if setting := svc.PublicSetting(); setting.Provider != constants.CaptchaProviderNone || setting.RegisterRequired {
		t.Fatalf("unexpected public setting: %+v", setting)
	}
	if _, err := svc.GenerateImageChallenge(); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("image challenge without image provider want ErrCaptchaConfigInvalid got %v", err)
	}

	var nilSvc *CaptchaService
	if err := nilSvc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("nil service should skip verification, got %v", err)
	}
}

func TestCaptchaImageVerify(t *testing.T) {
	if err := newImageCaptchaService(false).Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("disabled scene should pass, got %v", err)
	}

	svc := newImageCaptchaService(true)
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{}, ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("want ErrCaptchaRequired got %v", err)
	}

	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	if challenge.CaptchaID == "" || !strings.HasPrefix(challenge.ImageBase64, "data:image/png;base64,") {
		t.Fatalf("unexpected challenge: id=%q image=%.32s", challenge.CaptchaID, challenge.ImageBase64)
	}
	answer := svc.store().Get(challenge.CaptchaID, false)
	if len(answer) != 5 {
		t.Fatalf("answer length want 5 got %q", answer)
	}

	wrong := CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "0000000"}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, wrong, ""); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("wrong answer want ErrCaptchaInvalid got %v", err)
	}

	// 校验失败也会消耗挑战，需重新生成
	challenge, err = svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	answer = svc.store().Get(challenge.CaptchaID, false)
	right := CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: " " + strings.ToUpper(answer) + " "}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, right, ""); err != nil {
		t.Fatalf("correct answer should pass ignoring case, got %v", err)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, right, ""); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("challenge must be single use, got %v", err)
	}
}

func TestCaptchaTurnstileVerify(t *testing.T) {
	var gotSecret, gotRemoteIP string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotSecret = r.PostForm.Get("secret")
		gotRemoteIP = r.PostForm.Get("remoteip")
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good-token" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer server.Close()

	svc := NewCaptchaService(config.CaptchaConfig{
		Provider: constants.CaptchaProviderTurnstile,
		Scenes:   config.CaptchaSceneConfig{Register: true},
		Turnstile: config.CaptchaTurnstileConfig{
			SiteKey:   "site-key",
			SecretKey: "secret-key",
			VerifyURL: server.URL,
		},
	})
	if setting := svc.PublicSetting(); !setting.RegisterRequired || setting.TurnstileSiteKey != "site-key" {
		t.Fatalf("unexpected public setting: %+v", setting)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{}, ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("want ErrCaptchaRequired got %v", err)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{TurnstileToken: "good-token"}, "1.2.3.4"); err != nil {
		t.Fatalf("good token should pass, got %v", err)
	}
	if gotSecret != "secret-key" || gotRemoteIP != "1.2.3.4" {
		t.Fatalf("unexpected form: secret=%q remoteip=%q", gotSecret, gotRemoteIP)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{TurnstileToken: "bad"}, ""); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("bad token want ErrCaptchaInvalid got %v", err)
	}

	misconfigured := NewCaptchaService(config.CaptchaConfig{
		Provider: constants.CaptchaProviderTurnstile,
		Scenes:   config.CaptchaSceneConfig{Register: true},
	})
	if err := misconfigured.Verify(context.Background(), constants.CaptchaSceneRegister, CaptchaVerifyPayload{TurnstileToken: "x"}, ""); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("missing secret want ErrCaptchaConfigInvalid got %v", err)
	}
}
