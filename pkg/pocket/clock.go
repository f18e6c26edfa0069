/*
   McDino - PlayStation memory card adapter driver
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of McDino.

   McDino is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   McDino is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with McDino. If not, see <http://www.gnu.org/licenses/>.
*/

package pocket

import (
	"fmt"
	"time"
)

/*
	Clock is the PocketStation's real time clock. On the wire it takes 8 bytes:

		century, year, month, day, weekday, hour, minute, second

	All in BCD, weekday is 1 for Sunday through 7 for Saturday.
*/
type Clock struct {
	Year    int
	Month   time.Month
	Day     int
	Weekday time.Weekday
	Hour    int
	Minute  int
	Second  int
}

//
var clockLayout = map[string][2]int{
	"century": {0, 1},
	"year":    {1, 1},
	"month":   {2, 1},
	"day":     {3, 1},
	"weekday": {4, 1},
	"hour":    {5, 1},
	"minute":  {6, 1},
	"second":  {7, 1},
}

// ClockFromTime converts t to clock settings, in t's location.
func ClockFromTime(t time.Time) Clock {
	return Clock{
		Year:    t.Year(),
		Month:   t.Month(),
		Day:     t.Day(),
		Weekday: t.Weekday(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
	}
}

//
func decodeClock(data []byte) Clock {
	rec := newRecord(clockLayout, data)
	return Clock{
		Year:    rec.bcd("century")*100 + rec.bcd("year"),
		Month:   time.Month(rec.bcd("month")),
		Day:     rec.bcd("day"),
		Weekday: time.Weekday((int(rec.byteAt("weekday")) + 6) % 7),
		Hour:    rec.bcd("hour"),
		Minute:  rec.bcd("minute"),
		Second:  rec.bcd("second"),
	}
}

//
func (c Clock) encode() []byte {
	return []byte{
		toBCD(c.Year / 100),
		toBCD(c.Year % 100),
		toBCD(int(c.Month)),
		toBCD(c.Day),
		byte(c.Weekday) + 1,
		toBCD(c.Hour),
		toBCD(c.Minute),
		toBCD(c.Second),
	}
}

// Time returns the clock setting as time in loc.
func (c Clock) Time(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, loc)
}

//
func (c Clock) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (%s)", c.Year, int(c.Month),
		c.Day, c.Hour, c.Minute, c.Second, c.Weekday)
}
