package service

import "errors"

// 通用错误
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrJobAlreadyRunning = errors.New("job already running")
)

// 会员相关错误
var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrSponsorNotFound      = errors.New("sponsor not found")
	ErrMemberCodeExhausted  = errors.New("member code generation exhausted")
	ErrMemberEmailInvalid   = errors.New("member email invalid")
	ErrMemberNameInvalid    = errors.New("member display name invalid")
	ErrMemberAlreadyExists  = errors.New("member already exists")
	ErrSponsorCycleDetected = errors.New("sponsor chain contains a cycle")
)

// 验证码相关错误
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")
)

// 购买相关错误
var (
	ErrPurchaseInvalid      = errors.New("purchase fields invalid")
	ErrPurchasePriceInvalid = errors.New("purchase price invalid")
	ErrAlreadyPurchased     = errors.New("collectible already purchased")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrPurchaseAlreadyPaid  = errors.New("purchase already paid out")
	ErrPayoutAmountInvalid  = errors.New("payout amount invalid")
)

// 提现相关错误
var (
	ErrWithdrawalAmountInvalid = errors.New("withdrawal amount invalid")
	ErrWithdrawalInsufficient  = errors.New("insufficient wallet balance")
	ErrWithdrawalNotFound      = errors.New("withdrawal not found")
	ErrWithdrawalStatusInvalid = errors.New("withdrawal status invalid")
)

// 看板相关错误
var ErrDashboardRangeInvalid = errors.New("dashboard range invalid")
