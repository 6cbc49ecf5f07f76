package eval

import (
	"strings"
	"time"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// evalDate handles today, now, year, month, day, date, dateformat, days,
// yearfrac, datedif. today/now and the extraction operators are shifted by
// Config.TimezoneOffsetMinutes before reading day boundaries, per §4.3.
func (r *Reducer) evalDate(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpToday:
		t := r.localNow()
		return value.String(t.Format("2006-01-02")), nil
	case expr.OpNow:
		t := r.localNow()
		return value.String(t.Format(time.RFC3339)), nil
	case expr.OpYear:
		t, ok := r.parseDate(args[0])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(float64(t.Year())), nil
	case expr.OpMonth:
		t, ok := r.parseDate(args[0])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(float64(t.Month())), nil
	case expr.OpDay:
		t, ok := r.parseDate(args[0])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(float64(t.Day())), nil
	case expr.OpDate:
		return evalDateCtor(args)
	case expr.OpDateFormat:
		return r.evalDateFormat(args)
	case expr.OpDays:
		end, ok1 := r.parseDate(args[0])
		start, ok2 := r.parseDate(args[1])
		if !ok1 || !ok2 {
			return value.Null(), nil
		}
		diff := end.Sub(start)
		return value.Number(float64(int64(diff.Hours() / 24))), nil
	case expr.OpYearFrac:
		return r.evalYearFrac(args)
	case expr.OpDateDif:
		return r.evalDateDif(args)
	}
	return value.Null(), nil
}

func (r *Reducer) tzOffset() time.Duration {
	return time.Duration(r.cfg.TimezoneOffsetMinutes) * time.Minute
}

func (r *Reducer) localNow() time.Time {
	return time.Now().UTC().Add(r.tzOffset())
}

// parseDate accepts ISO-8601 date or datetime strings, interpreting the
// result in the configured timezone offset.
func (r *Reducer) parseDate(v value.Value) (time.Time, bool) {
	s, ok := v.AsString()
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Add(r.tzOffset()), true
		}
	}
	return time.Time{}, false
}

// evalDateCtor implements date(y, m, d) with month/day overflow
// normalization (day 32 of January -> Feb 1), matching time.Date's own
// overflow-carrying semantics.
func evalDateCtor(args []value.Value) (value.Value, error) {
	y, ok1 := toNumber(args[0])
	m, ok2 := toNumber(args[1])
	d, ok3 := toNumber(args[2])
	if !ok1 || !ok2 || !ok3 {
		return value.Null(), nil
	}
	t := time.Date(int(y), time.Month(int(m)), int(d), 0, 0, 0, 0, time.UTC)
	return value.String(t.Format("2006-01-02")), nil
}

func (r *Reducer) evalDateFormat(args []value.Value) (value.Value, error) {
	t, ok := r.parseDate(args[0])
	if !ok {
		return value.Null(), nil
	}
	layout := "2006-01-02"
	if len(args) > 1 {
		if f, ok := args[1].AsString(); ok {
			layout = excelToGoLayout(f)
		}
	}
	return value.String(t.Format(layout)), nil
}

// excelToGoLayout translates a small set of common Excel/JS-style date
// format tokens into a Go reference-time layout string.
func excelToGoLayout(f string) string {
	replacer := strings.NewReplacer(
		"YYYY", "2006", "yyyy", "2006",
		"MM", "01", "DD", "02", "dd", "02",
		"HH", "15", "mm", "04", "ss", "05",
	)
	return replacer.Replace(f)
}

// evalYearFrac implements basis 0-4: 30/360 US (0, default), actual/actual
// (1), actual/360 (2), actual/365 (3), 30/360 European (4).
func (r *Reducer) evalYearFrac(args []value.Value) (value.Value, error) {
	start, ok1 := r.parseDate(args[0])
	end, ok2 := r.parseDate(args[1])
	if !ok1 || !ok2 {
		return value.Null(), nil
	}
	basis := 0
	if len(args) > 2 {
		if n, ok := toNumber(args[2]); ok {
			basis = int(n)
		}
	}
	if end.Before(start) {
		start, end = end, start
	}
	switch basis {
	case 1: // actual/actual
		days := end.Sub(start).Hours() / 24
		yearDays := 365.0
		if isLeapSpan(start, end) {
			yearDays = 366.0
		}
		return value.Number(days / yearDays), nil
	case 2: // actual/360
		days := end.Sub(start).Hours() / 24
		return value.Number(days / 360), nil
	case 3: // actual/365
		days := end.Sub(start).Hours() / 24
		return value.Number(days / 365), nil
	case 4: // 30/360 European
		days := days30360European(start, end)
		return value.Number(days / 360), nil
	default: // 0: 30/360 US
		days := days30360US(start, end)
		return value.Number(days / 360), nil
	}
}

func isLeapSpan(start, end time.Time) bool {
	for y := start.Year(); y <= end.Year(); y++ {
		if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
			return true
		}
	}
	return false
}

func days30360US(start, end time.Time) float64 {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return float64(360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1))
}

func days30360European(start, end time.Time) float64 {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 {
		d2 = 30
	}
	return float64(360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1))
}

// evalDateDif implements unit codes Y, M, D, YM, YD, MD. The property
// datedif(s,e,"YM") + 12*datedif(s,e,"Y") = datedif(s,e,"M") holds by
// construction since YM is M mod 12 relative to the whole-year count.
func (r *Reducer) evalDateDif(args []value.Value) (value.Value, error) {
	start, ok1 := r.parseDate(args[0])
	end, ok2 := r.parseDate(args[1])
	unit, ok3 := args[2].AsString()
	if !ok1 || !ok2 || !ok3 {
		return value.Null(), nil
	}
	if end.Before(start) {
		return value.Null(), nil
	}

	years, months, days := diffYMD(start, end)
	totalMonths := years*12 + months

	switch unit {
	case "Y":
		return value.Number(float64(years)), nil
	case "M":
		return value.Number(float64(totalMonths)), nil
	case "D":
		return value.Number(float64(int64(end.Sub(start).Hours() / 24))), nil
	case "YM":
		return value.Number(float64(months)), nil
	case "MD":
		return value.Number(float64(days)), nil
	case "YD":
		anniversary := time.Date(end.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if anniversary.After(end) {
			anniversary = time.Date(end.Year()-1, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		}
		return value.Number(float64(int64(end.Sub(anniversary).Hours() / 24))), nil
	}
	return value.Null(), nil
}

// diffYMD decomposes end-start into whole calendar years, months, and a
// remainder of days, the way Excel's DATEDIF does (borrowing from the
// preceding unit when the smaller field underflows).
func diffYMD(start, end time.Time) (years, months, days int) {
	y := end.Year() - start.Year()
	m := int(end.Month()) - int(start.Month())
	d := end.Day() - start.Day()
	if d < 0 {
		prevMonth := end.AddDate(0, -1, 0)
		daysInPrevMonth := time.Date(prevMonth.Year(), prevMonth.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		d += daysInPrevMonth
		m--
	}
	if m < 0 {
		m += 12
		y--
	}
	return y, m, d
}
