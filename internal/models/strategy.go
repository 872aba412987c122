package models

import "time"

// Side: направление сигнала.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

func (s Side) Verb() string {
	switch s {
	case SideLong:
		return "BUY"
	case SideShort:
		return "SELL"
	default:
		return "-"
	}
}

// Signal: кандидат от правил, возможно отклонённый фильтром.
type Signal struct {
	Instrument       string
	Side             Side
	Time             time.Time
	Price            float64
	AcceptedByFilter bool
	Probability      float64 // -1 если фильтр не считал вероятность
	Reason           string
}
