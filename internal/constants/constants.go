package constants

// 会员状态常量
const (
	MemberStatusActivated   = "activated"
	MemberStatusInactivated = "inactivated"
)

// NFT 购买支付状态常量
const (
	PayoutStatusUnpaid = "unpaid"
	PayoutStatusPaid   = "paid"
)

// 分期佣金记录状态常量
const (
	AccrualStatusActive    = "active"
	AccrualStatusCompleted = "completed"
)

// 分期佣金跳过原因
const (
	AccrualSkipSponsorInactive = "sponsor_inactive"
	AccrualSkipGateNotMet      = "gate_not_met"
)

// 提现状态常量
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// 提现审核动作
const (
	WithdrawalActionApprove  = "approve"
	WithdrawalActionComplete = "complete"
	WithdrawalActionReject   = "reject"
)

// 钱包交易类型常量
const (
	WalletTxnTypePurchaseReward = "purchase_reward"
	WalletTxnTypeSponsorIncome  = "sponsor_income"
	WalletTxnTypeLevelIncome    = "level_income"
	WalletTxnTypeAccrualIncome  = "accrual_income"
	WalletTxnTypeNFTPayout      = "nft_payout"
	WalletTxnTypeWithdrawHold   = "withdraw_hold"
	WalletTxnTypeWithdrawRefund = "withdraw_refund"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskAccrualTick       = "accrual:tick"
	TaskDeactivationCheck = "deactivation:check"
	TaskRewardUplineRetry = "reward:upline_retry"
)

// 批处理任务锁名称
const (
	JobAccrualTick       = "accrual_tick"
	JobDeactivationCheck = "deactivation_check"
)

// 奖励计划默认值
const (
	DefaultRewardPool        = 100
	DefaultNFTPrice          = 100
	DefaultMaxLevels         = 10
	DefaultGenealogyMaxDepth = 6
	DefaultAccrualTotalDays  = 365
)

// 验证码提供方
const (
	CaptchaProviderNone      = "none"
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 验证码场景
const CaptchaSceneRegister = "register"

// 会员编号前缀
const MemberCodePrefix = "NL"
