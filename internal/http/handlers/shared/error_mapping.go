package shared

import (
	"errors"

	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondWithMappedError 命中规则时返回对应错误，否则记录原始错误并返回兜底错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var MemberErrorRules = []MappedError{
	{Target: service.ErrMemberNotFound, Code: response.CodeNotFound, Key: "error.member_not_found"},
	{Target: service.ErrSponsorNotFound, Code: response.CodeBadRequest, Key: "error.sponsor_not_found"},
	{Target: service.ErrMemberAlreadyExists, Code: response.CodeConflict, Key: "error.member_exists"},
	{Target: service.ErrMemberCodeExhausted, Code: response.CodeInternal, Key: "error.member_code_exhausted"},
	{Target: service.ErrMemberEmailInvalid, Code: response.CodeBadRequest, Key: "error.member_email_invalid"},
	{Target: service.ErrMemberNameInvalid, Code: response.CodeBadRequest, Key: "error.member_name_invalid"},
	{Target: service.ErrSponsorCycleDetected, Code: response.CodeConflict, Key: "error.sponsor_cycle"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

var CaptchaErrorRules = []MappedError{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
	{Target: service.ErrCaptchaVerifyFailed, Code: response.CodeInternal, Key: "error.captcha_verify_failed"},
}

var PurchaseErrorRules = []MappedError{
	{Target: service.ErrPurchaseInvalid, Code: response.CodeBadRequest, Key: "error.purchase_invalid"},
	{Target: service.ErrPurchasePriceInvalid, Code: response.CodeBadRequest, Key: "error.purchase_price_invalid"},
	{Target: service.ErrAlreadyPurchased, Code: response.CodeConflict, Key: "error.already_purchased"},
	{Target: service.ErrPurchaseNotFound, Code: response.CodeNotFound, Key: "error.purchase_not_found"},
	{Target: service.ErrPurchaseAlreadyPaid, Code: response.CodeConflict, Key: "error.purchase_already_paid"},
	{Target: service.ErrPayoutAmountInvalid, Code: response.CodeBadRequest, Key: "error.payout_amount_invalid"},
}

var WithdrawalErrorRules = []MappedError{
	{Target: service.ErrWithdrawalAmountInvalid, Code: response.CodeBadRequest, Key: "error.withdraw_amount_invalid"},
	{Target: service.ErrWithdrawalInsufficient, Code: response.CodeBadRequest, Key: "error.withdraw_insufficient"},
	{Target: service.ErrWithdrawalNotFound, Code: response.CodeNotFound, Key: "error.withdraw_not_found"},
	{Target: service.ErrWithdrawalStatusInvalid, Code: response.CodeConflict, Key: "error.withdraw_status_invalid"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

var JobErrorRules = []MappedError{
	{Target: service.ErrJobAlreadyRunning, Code: response.CodeConflict, Key: "error.job_running"},
}
