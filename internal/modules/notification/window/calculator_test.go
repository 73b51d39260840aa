package window

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
}

func day(offset int) time.Time {
	return time.Date(2025, time.March, 10+offset, 0, 0, 0, 0, time.UTC)
}

func TestEvaluate_WindowBoundaries(t *testing.T) {
	dueTomorrow := day(1)

	cases := []struct {
		name string
		now  time.Time
		want Decision
	}{
		{"before first window", at(7, 59), NoWindow},
		{"first window opens", at(8, 0), Window1},
		{"mid first window", at(9, 0), Window1},
		{"first window last minute", at(12, 59), Window1},
		{"second window opens", at(13, 0), Window2},
		{"second window last minute", at(18, 59), Window2},
		{"third window opens", at(19, 0), Window3},
		{"third window last minute", at(22, 59), Window3},
		{"after last window", at(23, 0), NoWindow},
		{"midnight", at(0, 0), NoWindow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.now, dueTomorrow)
			if got != tc.want {
				t.Errorf("Evaluate(%s, due tomorrow) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
			}
		})
	}
}

func TestEvaluate_DueDateClassification(t *testing.T) {
	now := at(9, 0)

	cases := []struct {
		name string
		due  time.Time
		want Decision
	}{
		{"due today", day(0), DueToday},
		{"due today late hour still due today", time.Date(2025, time.March, 10, 23, 50, 0, 0, time.UTC), DueToday},
		{"due tomorrow", day(1), Window1},
		{"due in two days", day(2), NotYetEligible},
		{"due next week", day(7), NotYetEligible},
		{"due yesterday", day(-1), Past},
		{"due last month", day(-30), Past},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(now, tc.due)
			if got != tc.want {
				t.Errorf("Evaluate(09:00, %s) = %v, want %v", tc.due.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestEvaluate_DueTodayIgnoresHour(t *testing.T) {
	// Немедленное напоминание "заказ сегодня" не привязано к окнам.
	for _, hour := range []int{0, 7, 12, 23} {
		if got := Evaluate(at(hour, 30), day(0)); got != DueToday {
			t.Errorf("Evaluate(%02d:30, due today) = %v, want DueToday", hour, got)
		}
	}
}

func TestDecisionSlotAndKind(t *testing.T) {
	cases := []struct {
		d    Decision
		slot int
		kind string
	}{
		{DueToday, SlotDueToday, "due-today"},
		{Window1, SlotWindow1, "window-1"},
		{Window2, SlotWindow2, "window-2"},
		{Window3, SlotWindow3, "window-3"},
		{NoWindow, -1, ""},
		{NotYetEligible, -1, ""},
		{Past, -1, ""},
	}
	for _, tc := range cases {
		if got := tc.d.Slot(); got != tc.slot {
			t.Errorf("%v.Slot() = %d, want %d", tc.d, got, tc.slot)
		}
		if got := SlotKind(tc.slot); got != tc.kind {
			t.Errorf("SlotKind(%d) = %q, want %q", tc.slot, got, tc.kind)
		}
	}
}
