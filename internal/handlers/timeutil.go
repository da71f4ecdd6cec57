package handlers

import (
	"time"
	_ "time/tzdata"
)

// Asia/Almaty for all display formatting
var tzAlmaty *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Almaty")
	if err != nil {
		tzAlmaty = time.UTC
		return
	}
	tzAlmaty = loc
}

// e.g. "02/01/2006 15:04"
func fmtDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(tzAlmaty).Format("02/01/2006 15:04")
}
