package betika

import "github.com/oddspulse/oddspulse/internal/adapters"

type matchesResponse struct {
	Data matchesData `json:"data"`
}

type matchesData struct {
	Matches []Match `json:"matches"`
}

// Match is one fixture from /v1/uo/matches.
type Match struct {
	ID          adapters.FlexString `json:"id"`
	Home        named               `json:"home"`
	Away        named               `json:"away"`
	Competition competition         `json:"competition"`
	Time        int64               `json:"time"` // unix seconds
	Markets     []Market            `json:"markets"`
}

type named struct {
	Name string `json:"name"`
}

type competition struct {
	Name     string `json:"name"`
	Category named  `json:"category"`
}

type Market struct {
	Selections []Selection `json:"selections"`
}

// Selection carries the odd as a string on the wire ("1.85").
type Selection struct {
	Name string             `json:"name"`
	Odd  adapters.FlexFloat `json:"odd"`
}
