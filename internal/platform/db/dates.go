package db

import (
	"time"

	"github.com/golang-sql/civil"
)

// DATE columns travel as time.Time at UTC midnight; domain code works with
// civil.Date.

func DateArg(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func DatePtrArg(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}

func DateOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}

func DatePtrOf(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := civil.DateOf(*t)
	return &d
}
