// Package validation содержит функции валидации входных данных.
package validation

import "github.com/mmeshcher/bazar-system/internal/model"

// SplitSumsToTotal проверяет, что части составной оплаты в сумме дают
// итог продажи. Пустая разбивка недопустима для составной оплаты.
func SplitSumsToTotal(breakdown []model.PaymentItem, totalCents int64) bool {
	if len(breakdown) == 0 {
		return false
	}

	var sum int64
	for _, item := range breakdown {
		if item.AmountCents <= 0 {
			return false
		}
		sum += item.AmountCents
	}

	return sum == totalCents
}

// PhoneDigits возвращает только цифры телефона для канала рассылки.
// Пустой результат означает, что контакт непригоден для отправки.
func PhoneDigits(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	return string(digits)
}
