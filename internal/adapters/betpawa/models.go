package betpawa

import (
	"github.com/oddspulse/oddspulse/internal/adapters"
)

type listResponse struct {
	Responses []queryResponse `json:"responses"`
}

type queryResponse struct {
	Responses []Event `json:"responses"`
}

// Event is one fixture in the by-queries listing.
type Event struct {
	ID          adapters.FlexString `json:"id"`
	Name        string              `json:"name"`
	StartTime   string              `json:"startTime"`
	Region      named               `json:"region"`
	Competition named               `json:"competition"`
	Widgets     []Widget            `json:"widgets"`
	Markets     []Market            `json:"markets"`
}

type named struct {
	Name string `json:"name"`
}

// Widget links the event to an external data provider. Type SPORTRADAR
// carries the provider's match id, shared with other books on the same feed.
type Widget struct {
	Type string              `json:"type"`
	ID   adapters.FlexString `json:"id"`
}

type Market struct {
	MarketType marketType `json:"marketType"`
	Prices     []Price    `json:"prices"`
}

type marketType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Price struct {
	Name  string             `json:"name"` // "1", "X", "2"
	Price adapters.FlexFloat `json:"price"`
}
