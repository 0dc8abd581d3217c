package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Output formats used for dates and times derived from machine-readable timestamps.
const (
	DateLayout = "Mon Jan 2"
	TimeLayout = "3:04 PM"
)

// RefDate is the run's notion of "today".
type RefDate struct {
	Year     int
	Month    time.Month
	Day      int
	Weekday  time.Weekday
	Location *time.Location
}

// NewRefDate builds a reference date from t in t's own location.
func NewRefDate(t time.Time) RefDate {
	return RefDate{
		Year:     t.Year(),
		Month:    t.Month(),
		Day:      t.Day(),
		Weekday:  t.Weekday(),
		Location: t.Location(),
	}
}

// Time returns midnight of the reference day.
func (r RefDate) Time() time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Date(r.Year, r.Month, r.Day, 0, 0, 0, 0, loc)
}

// String returns the reference date as YYYY-MM-DD.
func (r RefDate) String() string {
	return r.Time().Format("2006-01-02")
}

// monthPatterns holds the spellings recognized for each month, indexed by time.Month.
var monthPatterns = [...]string{
	time.January:   `jan(?:uary)?`,
	time.February:  `feb(?:ruary)?`,
	time.March:     `mar(?:ch)?`,
	time.April:     `apr(?:il)?`,
	time.May:       `may`,
	time.June:      `june?`,
	time.July:      `july?`,
	time.August:    `aug(?:ust)?`,
	time.September: `sep(?:t|tember)?`,
	time.October:   `oct(?:ober)?`,
	time.November:  `nov(?:ember)?`,
	time.December:  `dec(?:ember)?`,
}

var weekdayPatterns = [...]string{
	time.Sunday:    `sun(?:day)?`,
	time.Monday:    `mon(?:day)?`,
	time.Tuesday:   `tue(?:s|sday)?`,
	time.Wednesday: `wed(?:s|nesday)?`,
	time.Thursday:  `thu(?:r|rs|rsday)?`,
	time.Friday:    `fri(?:day)?`,
	time.Saturday:  `sat(?:urday)?`,
}

var (
	monthRes   [13]*regexp.Regexp
	weekdayRes [7]*regexp.Regexp

	// Bare numeric month/day tokens such as "5.2" or "5/2".
	bareMonthDay = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})$`)
	ordinal      = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
)

func init() {
	for m := time.January; m <= time.December; m++ {
		monthRes[m] = regexp.MustCompile(`(?i)\b` + monthPatterns[m] + `\b`)
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekdayRes[d] = regexp.MustCompile(`(?i)\b` + weekdayPatterns[d] + `\b`)
	}
}

// IsToday reports whether free-text dateText plausibly refers to ref. This is the
// lenient pass: any single check succeeding is enough.
func IsToday(dateText string, ref RefDate) bool {
	text := strings.ToLower(CollapseSpace(dateText))
	if text == "" {
		return false
	}

	if strings.Contains(text, "today") || strings.Contains(text, "tonight") {
		return true
	}

	if strings.Contains(text, strconv.Itoa(ref.Day)) &&
		(mentionsMonth(text, ref.Month) || mentionsWeekday(text, ref.Weekday)) {
		return true
	}

	if numericMonthDay(ref.Month, ref.Day).MatchString(text) {
		return true
	}

	if t, ok := ParseDate(text, ref); ok {
		return t.Day() == ref.Day && t.Month() == ref.Month && (t.Year() == 0 || t.Year() == ref.Year)
	}

	return false
}

// StrictIsToday is the exclusionary second pass. It returns false when dateText names a
// weekday other than ref's, or mentions another day of ref's month next to the month
// name or a numeric month separator.
//
// A multi-date listing such as "May 2 & May 9" is rejected even on May 2.
func StrictIsToday(dateText string, ref RefDate) bool {
	text := strings.ToLower(CollapseSpace(dateText))

	for d := time.Sunday; d <= time.Saturday; d++ {
		if d != ref.Weekday && weekdayRes[d].MatchString(text) {
			return false
		}
	}

	for _, re := range otherDayPatterns(ref.Month) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			day, err := strconv.Atoi(m[1])
			if err != nil || day < 1 || day > 31 {
				continue
			}
			if day != ref.Day {
				return false
			}
		}
	}

	return true
}

// FilterToday returns the records already marked as today that also survive the strict pass.
func FilterToday(records []Record, ref RefDate) []Record {
	today := make([]Record, 0)
	for _, r := range records {
		if r.IsToday && StrictIsToday(r.Date, ref) {
			today = append(today, r)
		}
	}
	return today
}

// ParseDate makes a best-effort attempt to read dateText as a calendar date.
// Bare "M.D" and "M/D" tokens are placed in the reference year; other layouts may
// leave the year unset (zero).
func ParseDate(dateText string, ref RefDate) (time.Time, bool) {
	text := CollapseSpace(dateText)
	if text == "" {
		return time.Time{}, false
	}

	if m := bareMonthDay.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		t := time.Date(ref.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if month < 1 || month > 12 || t.Day() != day {
			return time.Time{}, false
		}
		return t, true
	}

	text = ordinal.ReplaceAllString(text, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	"2006-01-02",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Mon Jan 2 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"1/2/06",
	"1.2.2006",
	"1.2.06",
	"Monday, January 2",
	"Monday January 2",
	"Mon, Jan 2",
	"Mon Jan 2",
	"Mon 2 Jan",
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
}

// timestampLayouts are tried, in order, on machine-readable timestamps from embedded JSON.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp and returns it in loc. Timestamps
// without an offset are read as wall-clock time in loc; those with one are converted.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// HasClock reports whether a timestamp accepted by ParseTimestamp carries a time of
// day. A bare "2006-01-02" date does not.
func HasClock(s string) bool {
	return len(strings.TrimSpace(s)) > len("2006-01-02")
}

// SameDay reports whether t's wall-clock calendar day equals ref.
func SameDay(t time.Time, ref RefDate) bool {
	return t.Year() == ref.Year && t.Month() == ref.Month && t.Day() == ref.Day
}

// FormatDate renders t as "Fri May 2".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTime renders t as "8:00 PM".
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

var clockLayouts = []string{
	TimeLayout,
	"3:04PM",
	"3 PM",
	"3PM",
	"15:04",
}

// ParseClock reads a time of day such as "8:00 PM", "7pm" or "20:30" and returns the
// offset from midnight.
func ParseClock(s string) (time.Duration, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
		}
	}
	return 0, false
}

func mentionsMonth(text string, m time.Month) bool {
	return monthRes[m].MatchString(text)
}

func mentionsWeekday(text string, d time.Weekday) bool {
	return weekdayRes[d].MatchString(text)
}

// numericMonthDay matches "M.D" or "M/D" (optionally zero-padded) as a whole token.
func numericMonthDay(m time.Month, day int) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\d])0?` + strconv.Itoa(int(m)) + `[./]0?` + strconv.Itoa(day) + `(?:[^\d]|$)`)
}

// otherDayPatterns capture a day-of-month written next to month m: "May 9", "9th May",
// "5/9" and "5.9".
func otherDayPatterns(m time.Month) []*regexp.Regexp {
	name := monthPatterns[m]
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b` + name + `\.?\s*(\d{1,2})(?:st|nd|rd|th)?\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + name + `\b`),
		regexp.MustCompile(`(?:^|[^\d])0?` + strconv.Itoa(int(m)) + `[./](\d{1,2})(?:[^\d]|$)`),
	}
}
