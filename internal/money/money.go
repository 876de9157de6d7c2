// Package money переводит суммы между основными и минимальными единицами валюты.
// Шлюз работает в минимальных единицах (пайсы, центы), клиент видит основные.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

const minorDigits = 2

// MaxUnitMinor ограничивает цену единицы товара, как это делает шлюз.
const MaxUnitMinor int64 = 99999999

var (
	hundred  = decimal.NewFromInt(100)
	maxUnit  = decimal.NewFromInt(MaxUnitMinor)
	maxTotal = decimal.NewFromInt(math.MaxInt64)
)

// ToMinor переводит цену в минимальные единицы с округлением половины от нуля.
func ToMinor(major float64) int64 {
	return decimal.NewFromFloat(major).Shift(minorDigits).Round(0).IntPart()
}

// ToMajor переводит минимальные единицы в основные.
func ToMajor(minor int64) float64 {
	return decimal.New(minor, -minorDigits).InexactFloat64()
}

// PercentOf возвращает round(amount * percent / 100).
func PercentOf(amount int64, percent int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Round(0).
		IntPart()
}

// ApplyDiscount уменьшает сумму на процент и возвращает итог и размер скидки.
// Итог никогда не бывает отрицательным.
func ApplyDiscount(total int64, percent int) (discounted int64, discount int64) {
	if percent <= 0 || total <= 0 {
		return total, 0
	}
	if percent > 100 {
		percent = 100
	}
	discount = PercentOf(total, percent)
	discounted = total - discount
	if discounted < 0 {
		discounted = 0
	}
	return discounted, discount
}

// Valid сообщает, можно ли использовать значение как цену.
func Valid(major float64) bool {
	return !math.IsNaN(major) && !math.IsInf(major, 0) && major >= 0
}

// UnitMinor переводит цену в минимальные единицы. false, если цена невалидна
// или больше MaxUnitMinor.
func UnitMinor(major float64) (int64, bool) {
	if !Valid(major) {
		return 0, false
	}
	minor := decimal.NewFromFloat(major).Shift(minorDigits).Round(0)
	if minor.GreaterThan(maxUnit) {
		return 0, false
	}
	return minor.IntPart(), true
}

// AddLine возвращает total + unit*quantity. false при переполнении int64.
func AddLine(total, unit, quantity int64) (int64, bool) {
	sum := decimal.NewFromInt(total).Add(decimal.NewFromInt(unit).Mul(decimal.NewFromInt(quantity)))
	if sum.GreaterThan(maxTotal) || sum.IsNegative() {
		return 0, false
	}
	return sum.IntPart(), true
}
