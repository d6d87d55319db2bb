package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type routerEnv struct {
	engine    *gin.Engine
	container *provider.Container
	cfg       *config.Config
}

func setupRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	return setupRouterEnvWithConfig(t, nil)
}

// setupRouterEnvWithConfig mutate 非空时在构建容器前调整配置
func setupRouterEnvWithConfig(t *testing.T, mutate func(*config.Config)) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	dsn := fmt.Sprintf("file:router_e2e_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	models.DB = db
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.JWT = testMemberJWT
	cfg.AdminJWT = testAdminJWT
	if mutate != nil {
		mutate(cfg)
	}

	container := provider.NewContainer(cfg)
	return &routerEnv{engine: SetupRouter(cfg, container), container: container, cfg: cfg}
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func (e *routerEnv) do(t *testing.T, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status %d body=%s", method, path, w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func (e *routerEnv) register(t *testing.T, name, sponsorCode string) registeredMember {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/members/register", "", map[string]string{
		"display_name": name,
		"email":        name + "@example.com",
		"sponsor_code": sponsorCode,
	})
	if resp.StatusCode != 0 {
		t.Fatalf("register %s failed: %d %s", name, resp.StatusCode, resp.Msg)
	}
	var member registeredMember
	if err := json.Unmarshal(resp.Data, &member); err != nil {
		t.Fatalf("decode member failed: %v", err)
	}
	return member
}

type registeredMember struct {
	ID         uint   `json:"id"`
	MemberCode string `json:"member_code"`
	SponsorID  *uint  `json:"sponsor_id"`
}

func TestRouterPurchaseFlow(t *testing.T) {
	env := setupRouterEnv(t)
	root := env.register(t, "root", "")
	child := env.register(t, "child", root.MemberCode)
	if child.SponsorID == nil || *child.SponsorID != root.ID {
		t.Fatalf("child sponsor want %d got %v", root.ID, child.SponsorID)
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/me", "", nil); resp.StatusCode != 401 {
		t.Fatalf("missing token want 401 got %d", resp.StatusCode)
	}

	token, err := service.IssueMemberToken(env.cfg.JWT, child.ID, child.MemberCode, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	resp := env.do(t, http.MethodPost, "/api/v1/me/purchases", token, map[string]string{
		"nft_code": "NFT-001",
		"series":   "genesis",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("purchase failed: %d %s", resp.StatusCode, resp.Msg)
	}

	var purchase models.NFTPurchase
	if err := models.DB.Where("member_id = ?", child.ID).First(&purchase).Error; err != nil {
		t.Fatalf("load purchase failed: %v", err)
	}
	var reward models.WalletTransaction
	if err := models.DB.Where("reference = ?", fmt.Sprintf("pr:%d", purchase.ID)).First(&reward).Error; err != nil {
		t.Fatalf("load buyer reward failed: %v", err)
	}
	if reward.MemberID != child.ID || reward.Type != constants.WalletTxnTypePurchaseReward || !reward.Amount.Decimal.Equal(env.container.Settings.BuyerReward()) {
		t.Fatalf("unexpected buyer reward: %+v", reward)
	}
	var sponsorTxn models.WalletTransaction
	if err := models.DB.Where("reference = ?", fmt.Sprintf("lvl:%d:1", purchase.ID)).First(&sponsorTxn).Error; err != nil {
		t.Fatalf("load sponsor commission failed: %v", err)
	}
	if sponsorTxn.MemberID != root.ID {
		t.Fatalf("sponsor commission member want %d got %d", root.ID, sponsorTxn.MemberID)
	}

	dup := env.do(t, http.MethodPost, "/api/v1/me/purchases", token, map[string]string{
		"nft_code": "NFT-001",
		"series":   "genesis",
	})
	if dup.StatusCode == 0 {
		t.Fatalf("duplicate purchase should be rejected")
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/me/upline", token, nil); resp.StatusCode != 0 {
		t.Fatalf("upline failed: %d %s", resp.StatusCode, resp.Msg)
	}
}

func TestRouterAdminAuthorization(t *testing.T) {
	env := setupRouterEnv(t)
	if err := env.container.AuthzService.AssignRoles(11, []string{"auditor"}); err != nil {
		t.Fatalf("assign roles failed: %v", err)
	}

	nobody, _ := service.IssueOperatorToken(env.cfg.AdminJWT, 10, "nobody", false, time.Hour, time.Now())
	auditor, _ := service.IssueOperatorToken(env.cfg.AdminJWT, 11, "auditor", false, time.Hour, time.Now())
	super, _ := service.IssueOperatorToken(env.cfg.AdminJWT, 12, "root", true, time.Hour, time.Now())
	memberToken, _ := service.IssueMemberToken(env.cfg.JWT, 1, "NLANY001", time.Hour, time.Now())

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/members", memberToken, nil); resp.StatusCode != 401 {
		t.Fatalf("member token on admin want 401 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/admin/members", nobody, nil); resp.StatusCode != 403 {
		t.Fatalf("operator without roles want 403 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/admin/members", auditor, nil); resp.StatusCode != 0 {
		t.Fatalf("auditor list members want 0 got %d %s", resp.StatusCode, resp.Msg)
	}
	if resp := env.do(t, http.MethodPost, "/api/v1/admin/jobs/accrual-tick", auditor, nil); resp.StatusCode != 403 {
		t.Fatalf("auditor run tick want 403 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/v1/admin/jobs/accrual-tick", super, nil); resp.StatusCode != 0 {
		t.Fatalf("super run tick want 0 got %d %s", resp.StatusCode, resp.Msg)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/admin/authz/permissions/catalog", super, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("catalog failed: %d", resp.StatusCode)
	}
	var items []adminPermissionCatalogItem
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode catalog failed: %v", err)
	}
	found := false
	for _, item := range items {
		if item.Permission == "POST:/admin/jobs/accrual-tick" {
			found = item.Module == "jobs"
		}
	}
	if !found {
		t.Fatalf("catalog missing accrual tick permission: %+v", items)
	}
}

func TestRouterAccrualTickIgnoresClientDisconnect(t *testing.T) {
	env := setupRouterEnv(t)
	root := env.register(t, "tickroot", "")
	child := env.register(t, "tickchild", root.MemberCode)
	memberToken, _ := service.IssueMemberToken(env.cfg.JWT, child.ID, child.MemberCode, time.Hour, time.Now())
	if resp := env.do(t, http.MethodPost, "/api/v1/me/purchases", memberToken, map[string]string{
		"nft_code": "NFT-TICK",
		"series":   "genesis",
	}); resp.StatusCode != 0 {
		t.Fatalf("purchase failed: %d %s", resp.StatusCode, resp.Msg)
	}

	super, _ := service.IssueOperatorToken(env.cfg.AdminJWT, 1, "root", true, time.Hour, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/accrual-tick", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+super)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	if resp.StatusCode != 0 {
		t.Fatalf("tick want 0 got %d %s", resp.StatusCode, resp.Msg)
	}
	var summary service.AccrualTickSummary
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("decode summary failed: %v", err)
	}
	if summary.Interrupted || summary.Processed != 1 {
		t.Fatalf("cancelled request must not cut the tick short: %+v", summary)
	}
}

func TestRouterRegisterRequiresCaptcha(t *testing.T) {
	env := setupRouterEnvWithConfig(t, func(cfg *config.Config) {
		cfg.Captcha.Provider = constants.CaptchaProviderImage
		cfg.Captcha.Scenes.Register = true
	})

	setting := env.do(t, http.MethodGet, "/api/v1/captcha/config", "", nil)
	if setting.StatusCode != 0 || !strings.Contains(string(setting.Data), `"register_required":true`) {
		t.Fatalf("unexpected captcha config: %d %s", setting.StatusCode, setting.Data)
	}

	body := map[string]interface{}{"display_name": "guarded", "email": "guarded@example.com"}
	if resp := env.do(t, http.MethodPost, "/api/v1/members/register", "", body); resp.StatusCode != 400 {
		t.Fatalf("register without captcha want 400 got %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/captcha/image", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("image captcha failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var challenge service.CaptchaImageChallenge
	if err := json.Unmarshal(resp.Data, &challenge); err != nil {
		t.Fatalf("decode challenge failed: %v", err)
	}
	body["captcha_payload"] = map[string]string{"captcha_id": challenge.CaptchaID, "captcha_code": "not-the-answer"}
	if resp := env.do(t, http.MethodPost, "/api/v1/members/register", "", body); resp.StatusCode != 400 {
		t.Fatalf("register with wrong captcha want 400 got %d", resp.StatusCode)
	}
	var count int64
	models.DB.Model(&models.Member{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected captcha must not create members, got %d", count)
	}
}

func TestRouterHealth(t *testing.T) {
	env := setupRouterEnv(t)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health http status %d", w.Code)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode health failed: %v", err)
	}
	if data["status"] != "ok" || data["redis"] != false || data["queue"] != false {
		t.Fatalf("unexpected health payload: %v", data)
	}
}
