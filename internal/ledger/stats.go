package ledger

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/mmeshcher/creditbook/internal/model"
)

// RetailerTotals агрегаты по одному магазину для панели администратора.
// Outstanding уже является суммой задолженностей покупателей, каждая не меньше нуля.
type RetailerTotals struct {
	RetailerID   int64
	Phone        string
	ShopName     string
	Address      string
	Status       model.RetailerStatus
	Customers    int
	CreditCount  int
	Outstanding  int64
	CreatedAt    time.Time
	LastActiveAt *time.Time
}

// Stats системная статистика.
type Stats struct {
	TotalRetailers    int
	ActiveRetailers   int
	InactiveRetailers int
	TotalCustomers    int
	TotalOutstanding  int64
}

// AggregateStats суммирует агрегаты магазинов.
func AggregateStats(retailers []RetailerTotals) Stats {
	var s Stats
	for _, r := range retailers {
		s.TotalRetailers++
		if r.Status == model.RetailerStatusActive {
			s.ActiveRetailers++
		}
		s.TotalCustomers += r.Customers
		if r.Outstanding > 0 {
			s.TotalOutstanding += r.Outstanding
		}
	}
	s.InactiveRetailers = s.TotalRetailers - s.ActiveRetailers
	return s
}

// RetailerSortKey порядок списка магазинов в панели администратора.
type RetailerSortKey string

const (
	RetailerSortNewest         RetailerSortKey = "newest"
	RetailerSortMostCustomers  RetailerSortKey = "most_customers"
	RetailerSortMostUsage      RetailerSortKey = "most_usage"
	RetailerSortRecentlyActive RetailerSortKey = "recently_active"
)

// ParseRetailerSortKey возвращает RetailerSortNewest для неизвестных значений.
func ParseRetailerSortKey(s string) RetailerSortKey {
	switch k := RetailerSortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case RetailerSortMostCustomers, RetailerSortMostUsage, RetailerSortRecentlyActive:
		return k
	}
	return RetailerSortNewest
}

// SortRetailers сортирует магазины по убыванию выбранного признака.
func SortRetailers(list []RetailerTotals, key RetailerSortKey) {
	slices.SortFunc(list, func(a, b RetailerTotals) int {
		var c int
		switch key {
		case RetailerSortMostCustomers:
			c = cmp.Compare(b.Customers, a.Customers)
		case RetailerSortMostUsage:
			c = cmp.Compare(b.CreditCount, a.CreditCount)
		case RetailerSortRecentlyActive:
			c = lastActive(b).Compare(lastActive(a))
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(b.RetailerID, a.RetailerID)
	})
}

func lastActive(r RetailerTotals) time.Time {
	if r.LastActiveAt != nil {
		return *r.LastActiveAt
	}
	return time.Time{}
}
