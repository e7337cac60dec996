package sporty

import "github.com/oddspulse/oddspulse/internal/adapters"

type upcomingResponse struct {
	BizCode int          `json:"bizCode"`
	Message string       `json:"message"`
	Data    upcomingData `json:"data"`
}

type upcomingData struct {
	TotalNum    int          `json:"totalNum"`
	Tournaments []Tournament `json:"tournaments"`
}

// liveResponse carries tournaments directly in data, unlike the upcoming
// endpoint which nests them one level deeper.
type liveResponse struct {
	BizCode int          `json:"bizCode"`
	Message string       `json:"message"`
	Data    []Tournament `json:"data"`
}

type Tournament struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Events []Event `json:"events"`
}

// Event is one fixture from the factsCenter feeds. The live feed adds the
// in-play fields (status, playedSeconds, period) on the same shape.
type Event struct {
	EventID           string           `json:"eventId"` // "sr:match:<n>"
	HomeTeamName      string           `json:"homeTeamName"`
	AwayTeamName      string           `json:"awayTeamName"`
	EstimateStartTime adapters.FlexInt `json:"estimateStartTime"` // unix ms
	Status            int              `json:"status"`
	PlayedSeconds     string           `json:"playedSeconds"` // "47:12"
	Period            string           `json:"period"`
	Sport             sportInfo        `json:"sport"`
	Markets           []Market         `json:"markets"`
}

type sportInfo struct {
	Category named `json:"category"`
}

type named struct {
	Name string `json:"name"`
}

type Market struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          int       `json:"status"`
	SuspendedReason string    `json:"suspendedReason"`
	Outcomes        []Outcome `json:"outcomes"`
}

type Outcome struct {
	Desc string             `json:"desc"`
	Odds adapters.FlexFloat `json:"odds"`
}
