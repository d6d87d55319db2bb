package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyScale 金额保留的小数位数（日息切片需要高于分的精度）
const MoneyScale = 8

// Money 统一金额类型（保留 8 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(MoneyScale)}
}

// NewMoneyFromInt 从整数创建金额
func NewMoneyFromInt(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// ZeroMoney 零金额
func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// Add 金额相加
func (m Money) Add(other Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Add(other.Decimal))
}

// Sub 金额相减
func (m Money) Sub(other Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Sub(other.Decimal))
}

// Neg 取反
func (m Money) Neg() Money {
	return Money{Decimal: m.Decimal.Neg()}
}

// MarshalJSON 统一输出固定小数位字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(MoneyScale).StringFixed(MoneyScale))
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(MoneyScale)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(MoneyScale)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(MoneyScale).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(MoneyScale)
	return nil
}

// String 返回固定小数位格式
func (m Money) String() string {
	return m.Decimal.Round(MoneyScale).StringFixed(MoneyScale)
}
