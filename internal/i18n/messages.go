package i18n

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "未登录或登录已失效",
		"error.forbidden":                "没有访问权限",
		"error.not_found":                "资源不存在",
		"error.internal":                 "服务器内部错误",
		"error.jwt_secret_missing":       "未配置 JWT 密钥",
		"error.auth_header_missing":      "缺少 Authorization 请求头",
		"error.auth_header_invalid":      "Authorization 格式错误",
		"error.token_invalid":            "令牌无效或已过期",
		"error.rate_limit_unavailable":   "限流服务暂不可用",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后重试",
		"error.register_rate_limited":    "注册过于频繁，请 %d 秒后重试",
		"error.member_id_invalid":        "会员ID无效",
		"error.member_id_type_invalid":   "会员ID类型错误",
		"error.operator_id_invalid":      "操作员ID无效",
		"error.operator_id_type_invalid": "操作员ID类型错误",
		"error.member_not_found":         "会员不存在",
		"error.sponsor_not_found":        "推荐人不存在",
		"error.member_exists":            "会员已存在",
		"error.captcha_required":         "请完成验证码",
		"error.captcha_invalid":          "验证码错误或已过期",
		"error.captcha_config_invalid":   "验证码配置错误",
		"error.captcha_verify_failed":    "验证码校验失败，请稍后重试",
		"error.captcha_unavailable":      "当前未启用图片验证码",
		"error.captcha_generate_failed":  "验证码生成失败",
		"error.member_code_exhausted":    "会员编号生成失败，请重试",
		"error.member_email_invalid":     "邮箱格式错误",
		"error.member_name_invalid":      "昵称不合法",
		"error.sponsor_cycle":            "推荐关系存在环",
		"error.purchase_invalid":         "购买信息不完整",
		"error.purchase_price_invalid":   "购买价格无效",
		"error.already_purchased":        "该藏品已购买",
		"error.purchase_not_found":       "购买记录不存在",
		"error.purchase_already_paid":    "该购买已回款",
		"error.payout_amount_invalid":    "回款金额无效",
		"error.withdraw_amount_invalid":  "提现金额无效",
		"error.withdraw_insufficient":    "可用余额不足",
		"error.withdraw_not_found":       "提现记录不存在",
		"error.withdraw_status_invalid":  "提现状态不允许此操作",
		"error.dashboard_range_invalid":  "统计区间无效",
		"error.job_running":              "任务正在运行，请稍后再试",
		"error.role_invalid":             "角色名称无效",
		"error.policy_invalid":           "权限策略无效",
	},
	LocaleEnUS: {
		"error.bad_request":              "Invalid request parameters",
		"error.unauthorized":             "Not signed in or session expired",
		"error.forbidden":                "Permission denied",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Internal server error",
		"error.jwt_secret_missing":       "JWT secret is not configured",
		"error.auth_header_missing":      "Missing Authorization header",
		"error.auth_header_invalid":      "Malformed Authorization header",
		"error.token_invalid":            "Token is invalid or expired",
		"error.rate_limit_unavailable":   "Rate limiter unavailable",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
		"error.register_rate_limited":    "Too many registrations, retry in %d seconds",
		"error.member_id_invalid":        "Invalid member ID",
		"error.member_id_type_invalid":   "Invalid member ID type",
		"error.operator_id_invalid":      "Invalid operator ID",
		"error.operator_id_type_invalid": "Invalid operator ID type",
		"error.member_not_found":         "Member not found",
		"error.sponsor_not_found":        "Sponsor not found",
		"error.member_exists":            "Member already exists",
		"error.captcha_required":         "Captcha is required",
		"error.captcha_invalid":          "Captcha is invalid or expired",
		"error.captcha_config_invalid":   "Captcha is misconfigured",
		"error.captcha_verify_failed":    "Captcha verification failed, please retry later",
		"error.captcha_unavailable":      "Image captcha is not enabled",
		"error.captcha_generate_failed":  "Failed to generate captcha",
		"error.member_code_exhausted":    "Could not allocate a member code, please retry",
		"error.member_email_invalid":     "Invalid email address",
		"error.member_name_invalid":      "Invalid display name",
		"error.sponsor_cycle":            "Sponsor chain contains a cycle",
		"error.purchase_invalid":         "Purchase fields are incomplete",
		"error.purchase_price_invalid":   "Invalid purchase price",
		"error.already_purchased":        "Collectible already purchased",
		"error.purchase_not_found":       "Purchase not found",
		"error.purchase_already_paid":    "Purchase already paid out",
		"error.payout_amount_invalid":    "Invalid payout amount",
		"error.withdraw_amount_invalid":  "Invalid withdrawal amount",
		"error.withdraw_insufficient":    "Insufficient wallet balance",
		"error.withdraw_not_found":       "Withdrawal not found",
		"error.withdraw_status_invalid":  "Withdrawal status does not allow this action",
		"error.dashboard_range_invalid":  "Invalid statistics range",
		"error.job_running":              "Job is already running, try again later",
		"error.role_invalid":             "Invalid role name",
		"error.policy_invalid":           "Invalid policy",
	},
}
