package ledger

import "time"

// Status состояние задолженности относительно даты оплаты.
type Status string

const (
	StatusCurrent Status = "current"
	StatusOverdue Status = "overdue"
)

// Bucket интервал дней до срока или дней просрочки.
type Bucket string

const (
	BucketDueWithin7  Bucket = "Due within 7 days"
	BucketDueWithin14 Bucket = "Due within 14 days"
	BucketDueWithin30 Bucket = "Due within 30 days"
	BucketDueLater    Bucket = "Due in 30+ days"

	BucketOverdue0To7   Bucket = "0-7 days"
	BucketOverdue8To10  Bucket = "8-10 days"
	BucketOverdue11To15 Bucket = "11-15 days"
	BucketOverdue16To20 Bucket = "16-20 days"
	BucketOverdue21To25 Bucket = "21-25 days"
	BucketOverdue26To30 Bucket = "26-30 days"
	BucketOverdue31To45 Bucket = "31-45 days"
	BucketOverdueOver45 Bucket = "Over 45 days"

	// BucketNone для задолженности без даты оплаты.
	BucketNone Bucket = "No due date"
)

type bound struct {
	max    int
	bucket Bucket
}

// Верхние границы включительно.
var (
	upcomingBounds = []bound{
		{7, BucketDueWithin7},
		{14, BucketDueWithin14},
		{30, BucketDueWithin30},
	}
	overdueBounds = []bound{
		{7, BucketOverdue0To7},
		{10, BucketOverdue8To10},
		{15, BucketOverdue11To15},
		{20, BucketOverdue16To20},
		{25, BucketOverdue21To25},
		{30, BucketOverdue26To30},
		{45, BucketOverdue31To45},
	}
)

// Buckets все интервалы в порядке отображения отчёта.
var Buckets = []Bucket{
	BucketOverdueOver45, BucketOverdue31To45, BucketOverdue26To30, BucketOverdue21To25,
	BucketOverdue16To20, BucketOverdue11To15, BucketOverdue8To10, BucketOverdue0To7,
	BucketDueWithin7, BucketDueWithin14, BucketDueWithin30, BucketDueLater,
	BucketNone,
}

// Ageing результат классификации одной даты оплаты.
type Ageing struct {
	Status       Status `json:"status"`
	Bucket       Bucket `json:"bucket"`
	DaysUntilDue int    `json:"days_until_due"`
	DaysOverdue  int    `json:"days_overdue"`
}

// Classify относит дату оплаты к интервалу относительно today.
// Срок сегодня или в прошлом считается просрочкой. Без даты оплаты классификации нет.
func Classify(today time.Time, due *time.Time) (Ageing, bool) {
	if due == nil || due.IsZero() {
		return Ageing{}, false
	}

	until := DaysBetween(today, *due)
	if until > 0 {
		return Ageing{
			Status:       StatusCurrent,
			Bucket:       pick(upcomingBounds, until, BucketDueLater),
			DaysUntilDue: until,
		}, true
	}

	overdue := -until
	return Ageing{
		Status:       StatusOverdue,
		Bucket:       pick(overdueBounds, overdue, BucketOverdueOver45),
		DaysUntilDue: until,
		DaysOverdue:  overdue,
	}, true
}

func pick(bounds []bound, days int, fallback Bucket) Bucket {
	for _, b := range bounds {
		if days <= b.max {
			return b.bucket
		}
	}
	return fallback
}
