package ledger

import (
	"errors"
	"slices"
	"time"
)

// ErrInvalidDueDays возвращается, если срок оплаты не входит в допустимый набор.
var ErrInvalidDueDays = errors.New("due days must be one of 7, 10, 14, 21, 25, 30, 45, 60")

// AllowedDueDays допустимые сроки оплаты в днях.
var AllowedDueDays = []int{7, 10, 14, 21, 25, 30, 45, 60}

// ValidDueDays сообщает, допустим ли срок оплаты.
func ValidDueDays(days int) bool {
	return slices.Contains(AllowedDueDays, days)
}

// Day отбрасывает время суток и приводит момент к календарной дате в UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween количество календарных дней от from до to (отрицательное, если to раньше).
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// DueDates вычисляет дату оплаты и дату напоминания для выдачи в долг.
// Напоминание приходится на середину срока: due − dueDays/2.
func DueDates(entry time.Time, dueDays int) (due, reminder time.Time, err error) {
	if !ValidDueDays(dueDays) {
		return time.Time{}, time.Time{}, ErrInvalidDueDays
	}
	due = Day(entry).AddDate(0, 0, dueDays)
	reminder = due.AddDate(0, 0, -dueDays/2)
	return due, reminder, nil
}
