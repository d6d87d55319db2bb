package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"

	// DefaultLocale 未匹配语言时使用
	DefaultLocale = LocaleZhCN

	localeQueryKey = "lang"
)

var supportedTags = []language.Tag{
	language.SimplifiedChinese,
	language.AmericanEnglish,
}

var supportedLocales = []string{LocaleZhCN, LocaleEnUS}

var matcher = language.NewMatcher(supportedTags)

// ResolveLocale 依次读取 lang 参数与 Accept-Language 请求头
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if query := strings.TrimSpace(c.Query(localeQueryKey)); query != "" {
		return NormalizeLocale(query)
	}
	return MatchAcceptLanguage(c.GetHeader("Accept-Language"))
}

// MatchAcceptLanguage 从 Accept-Language 中匹配支持的语言
func MatchAcceptLanguage(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return supportedLocales[index]
}

// NormalizeLocale 将任意语言标签归一为支持的语言
func NormalizeLocale(raw string) string {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLocale
	}
	return supportedLocales[index]
}

// T 翻译消息，缺失时回退默认语言，再回退为 key 本身
func T(locale, key string) string {
	if msg, ok := lookup(locale, key); ok {
		return msg
	}
	if msg, ok := lookup(DefaultLocale, key); ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化消息
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func lookup(locale, key string) (string, bool) {
	table, ok := messages[locale]
	if !ok {
		return "", false
	}
	msg, ok := table[key]
	return msg, ok
}
