package ledger

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Credit выдача в долг, участвующая в распределении оплат.
type Credit struct {
	ID           int64
	Amount       int64
	EntryDate    time.Time
	DueDate      *time.Time
	ReminderDate *time.Time
}

// OpenCredit выдача с непогашенным остатком.
type OpenCredit struct {
	Credit
	Remaining int64
}

// OpenCredits распределяет сумму оплат по выдачам от старых к новым и
// возвращает выдачи, оставшиеся погашенными не полностью.
func OpenCredits(credits []Credit, paid int64) []OpenCredit {
	sorted := slices.Clone(credits)
	slices.SortFunc(sorted, func(a, b Credit) int {
		if c := a.EntryDate.Compare(b.EntryDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var open []OpenCredit
	for _, c := range sorted {
		if paid >= c.Amount {
			paid -= c.Amount
			continue
		}
		open = append(open, OpenCredit{Credit: c, Remaining: c.Amount - paid})
		paid = 0
	}
	return open
}

// Account агрегаты по паре магазин–покупатель.
type Account struct {
	CustomerID   int64
	Name         string
	Phone        string
	Credits      int64
	Payments     int64
	LastActivity time.Time
	CreditEvents []Credit
}

// Debtor строка списка должников.
type Debtor struct {
	CustomerID   int64
	Name         string
	Phone        string
	Outstanding  int64
	NextDueDate  *time.Time
	Ageing       *Ageing
	OverdueCount int
	LastActivity time.Time
}

// NewDebtor вычисляет задолженность, ближайший срок и просрочку по счёту.
// Второе значение false, если задолженности нет.
func NewDebtor(a Account, today time.Time) (Debtor, bool) {
	outstanding := Balance(a.Credits, a.Payments)
	if outstanding <= 0 {
		return Debtor{}, false
	}

	d := Debtor{
		CustomerID:   a.CustomerID,
		Name:         a.Name,
		Phone:        a.Phone,
		Outstanding:  outstanding,
		LastActivity: a.LastActivity,
	}

	for _, c := range OpenCredits(a.CreditEvents, a.Payments) {
		if c.DueDate == nil {
			continue
		}
		if d.NextDueDate == nil || c.DueDate.Before(*d.NextDueDate) {
			due := *c.DueDate
			d.NextDueDate = &due
		}
		if DaysBetween(today, *c.DueDate) <= 0 {
			d.OverdueCount++
		}
	}

	if ageing, ok := Classify(today, d.NextDueDate); ok {
		d.Ageing = &ageing
	}

	return d, true
}

// SortKey порядок сортировки списка должников.
type SortKey int

const (
	SortBalanceDesc SortKey = iota
	SortBalanceAsc
	SortNameAsc
	SortNameDesc
	SortDueAsc
	SortDueDesc
	SortRecent
)

// DefaultSortKey применяется для неизвестного ключа: самые крупные долги сверху.
const DefaultSortKey = SortBalanceDesc

var sortKeyNames = map[SortKey]string{
	SortBalanceDesc: "balance_desc",
	SortBalanceAsc:  "balance_asc",
	SortNameAsc:     "name_asc",
	SortNameDesc:    "name_desc",
	SortDueAsc:      "due_asc",
	SortDueDesc:     "due_desc",
	SortRecent:      "recent",
}

func (k SortKey) String() string {
	if s, ok := sortKeyNames[k]; ok {
		return s
	}
	return sortKeyNames[DefaultSortKey]
}

// ParseSortKey разбирает параметры sort и order запроса. Поддерживаются как
// пары ("amount", "desc"), так и составные значения ("due_asc").
func ParseSortKey(sort, order string) SortKey {
	sort = strings.ToLower(strings.TrimSpace(sort))
	order = strings.ToLower(strings.TrimSpace(order))

	if field, dir, ok := strings.Cut(sort, "_"); ok && (dir == "asc" || dir == "desc") {
		sort, order = field, dir
	}

	switch sort {
	case "name":
		if order == "desc" {
			return SortNameDesc
		}
		return SortNameAsc
	case "amount", "balance", "outstanding":
		if order == "asc" {
			return SortBalanceAsc
		}
		return SortBalanceDesc
	case "due", "due_date", "days_until_due":
		if order == "desc" {
			return SortDueDesc
		}
		return SortDueAsc
	case "recent", "last_activity":
		return SortRecent
	}
	return DefaultSortKey
}

// BuildDebtorList возвращает должников магазина в заданном порядке.
// Покупатели без задолженности в список не попадают.
func BuildDebtorList(accounts []Account, key SortKey, today time.Time) []Debtor {
	debtors := make([]Debtor, 0, len(accounts))
	for _, a := range accounts {
		if d, ok := NewDebtor(a, today); ok {
			debtors = append(debtors, d)
		}
	}
	SortDebtors(debtors, key)
	return debtors
}

// SortDebtors сортирует должников; равные строки упорядочиваются по имени и идентификатору.
func SortDebtors(debtors []Debtor, key SortKey) {
	slices.SortFunc(debtors, func(a, b Debtor) int {
		if c := compareDebtors(a, b, key); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
}

func compareDebtors(a, b Debtor, key SortKey) int {
	switch key {
	case SortBalanceAsc:
		return cmp.Compare(a.Outstanding, b.Outstanding)
	case SortNameAsc:
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortNameDesc:
		return cmp.Compare(strings.ToLower(b.Name), strings.ToLower(a.Name))
	case SortDueAsc:
		return compareDue(a.NextDueDate, b.NextDueDate, false)
	case SortDueDesc:
		return compareDue(a.NextDueDate, b.NextDueDate, true)
	case SortRecent:
		return b.LastActivity.Compare(a.LastActivity)
	default:
		return cmp.Compare(b.Outstanding, a.Outstanding)
	}
}

// Должники без срока оплаты всегда в конце.
func compareDue(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return b.Compare(*a)
	}
	return a.Compare(*b)
}

// BucketTotal итог по одному интервалу просрочки.
type BucketTotal struct {
	Bucket      Bucket
	Debtors     int
	Outstanding int64
}

// Summarize группирует должников по интервалам в порядке Buckets.
func Summarize(debtors []Debtor) []BucketTotal {
	totals := make(map[Bucket]*BucketTotal, len(Buckets))
	for _, d := range debtors {
		b := BucketNone
		if d.Ageing != nil {
			b = d.Ageing.Bucket
		}
		t, ok := totals[b]
		if !ok {
			t = &BucketTotal{Bucket: b}
			totals[b] = t
		}
		t.Debtors++
		t.Outstanding += d.Outstanding
	}

	res := make([]BucketTotal, 0, len(totals))
	for _, b := range Buckets {
		if t, ok := totals[b]; ok {
			res = append(res, *t)
		}
	}
	return res
}
