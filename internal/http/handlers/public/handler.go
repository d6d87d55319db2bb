package public

import "github.com/nftlevel-next/internal/provider"

// Handler 会员侧接口处理器入口
// 说明：注册与按编号查询为公开接口，其余接口需要会员令牌。
type Handler struct {
	*provider.Container
}

// New 创建会员侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
