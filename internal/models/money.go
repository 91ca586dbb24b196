package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money 金额，统一保留 2 位小数
// 主站以字符串下发，兼容旧接口的数字形式
type Money struct {
	decimal.Decimal
}

func money(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// NewMoneyFromInt 从整数创建金额
func NewMoneyFromInt(amount int64) Money {
	return money(decimal.NewFromInt(amount))
}

// Times 行小计
func (m Money) Times(quantity int) Money {
	return money(m.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
}

// Plus 金额相加
func (m Money) Plus(other Money) Money {
	return money(m.Decimal.Add(other.Decimal))
}

// Equal 按 2 位小数比较
func (m Money) Equal(other Money) bool {
	return m.Decimal.Round(2).Equal(other.Decimal.Round(2))
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON 输出 "12.30" 形式的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受字符串、数字或 null
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*m = Money{}
	case string:
		if v == "" {
			*m = Money{}
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid money %q: %w", v, err)
		}
		*m = money(d)
	case float64:
		*m = money(decimal.NewFromFloat(v))
	default:
		return fmt.Errorf("invalid money %s", string(b))
	}
	return nil
}
