// Package ledger вычисляет задолженность, классифицирует просрочку и строит
// списки должников по агрегатам книги долгов. Пакет не хранит состояния и не
// обращается к хранилищу.
package ledger

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/creditbook/internal/money"
)

var (
	// ErrExceedsBalance возвращается, если оплата больше текущей задолженности.
	ErrExceedsBalance = errors.New("payment exceeds outstanding balance")
	// ErrInvalidAmount возвращается для нулевой или отрицательной суммы.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// ExceedsBalanceError несёт задолженность, на момент проверки которой оплата была отклонена.
type ExceedsBalanceError struct {
	Amount      int64
	Outstanding int64
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment %s exceeds outstanding balance %s",
		money.Format(e.Amount), money.Format(e.Outstanding))
}

// Is позволяет сравнивать ошибку с ErrExceedsBalance через errors.Is.
func (e *ExceedsBalanceError) Is(target error) bool {
	return target == ErrExceedsBalance
}

// RawBalance возвращает разницу выдач и оплат без ограничения снизу.
func RawBalance(credits, payments int64) int64 {
	return credits - payments
}

// Balance возвращает задолженность для отображения: выдачи минус оплаты, но не меньше нуля.
func Balance(credits, payments int64) int64 {
	if b := credits - payments; b > 0 {
		return b
	}
	return 0
}

// ValidateAmount проверяет, что сумма записи положительна.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CheckPayment допускает оплату, только если она не превышает задолженность.
func CheckPayment(amount, outstanding int64) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount > outstanding {
		return &ExceedsBalanceError{Amount: amount, Outstanding: outstanding}
	}
	return nil
}
