package markethours

import "time"

type holiday struct {
	month time.Month
	day   int
	name  string
}

// NSE trading holidays per calendar year, from the exchange's official
// list. Tentative lunar-calendar dates are taken as published.
var nseHolidays = map[int][]holiday{
	2025: {
		{time.February, 26, "Mahashivratri"},
		{time.March, 14, "Holi"},
		{time.March, 31, "Id-ul-Fitr"},
		{time.April, 10, "Mahavir Jayanti"},
		{time.April, 14, "Dr. Ambedkar Jayanti"},
		{time.April, 18, "Good Friday"},
		{time.May, 1, "Maharashtra Day"},
		{time.August, 15, "Independence Day"},
		{time.August, 27, "Ganesh Chaturthi"},
		{time.October, 2, "Mahatma Gandhi Jayanti / Dussehra"},
		{time.October, 21, "Diwali Laxmi Pujan"},
		{time.October, 22, "Diwali Balipratipada"},
		{time.November, 5, "Guru Nanak Jayanti"},
		{time.December, 25, "Christmas"},
	},
	2026: {
		{time.January, 26, "Republic Day"},
		{time.February, 17, "Mahashivratri"},
		{time.March, 14, "Holi"},
		{time.March, 31, "Id-ul-Fitr"},
		{time.April, 2, "Ram Navami"},
		{time.April, 6, "Mahavir Jayanti"},
		{time.April, 10, "Good Friday"},
		{time.April, 14, "Dr. Ambedkar Jayanti"},
		{time.May, 1, "Maharashtra Day"},
		{time.June, 7, "Bakrid"},
		{time.July, 6, "Muharram"},
		{time.August, 15, "Independence Day"},
		{time.August, 16, "Janmashtami"},
		{time.September, 5, "Milad-un-Nabi"},
		{time.October, 2, "Mahatma Gandhi Jayanti"},
		{time.October, 20, "Dussehra"},
		{time.October, 21, "Dussehra"},
		{time.November, 5, "Diwali Laxmi Pujan"},
		{time.November, 6, "Diwali Balipratipada"},
		{time.November, 7, "Bhai Dooj"},
		{time.November, 19, "Guru Nanak Jayanti"},
		{time.December, 25, "Christmas"},
	},
}

// dateKey -> holiday name, for O(1) lookup.
var holidaySet map[string]string

func init() {
	holidaySet = make(map[string]string)
	for year, list := range nseHolidays {
		for _, h := range list {
			holidaySet[dateKey(year, h.month, h.day)] = h.name
		}
	}
}

// IsHoliday returns true if the date (in IST) is an NSE holiday.
func IsHoliday(t time.Time) bool {
	_, ok := holidaySet[istDateKey(t)]
	return ok
}

// HolidayName returns the holiday's name for the date (in IST), or ""
// on a trading day.
func HolidayName(t time.Time) string {
	return holidaySet[istDateKey(t)]
}

func istDateKey(t time.Time) string {
	ist := t.In(IST)
	return dateKey(ist.Year(), ist.Month(), ist.Day())
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, IST).Format("2006-01-02")
}
