package models

import "time"

// WeatherReading is a point-in-time observation for one city, in imperial
// units as returned by the upstream API. Immutable once fetched.
type WeatherReading struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
	Conditions  string    `json:"conditions"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// ForecastEntry is one 3-hour forecast slot from the 5-day forecast
// endpoint. A standard response carries 40 of these.
type ForecastEntry struct {
	At          time.Time `json:"at"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
	Conditions  string    `json:"conditions"`
}

// ForecastRecord is one day's representative forecast, keyed by (City, Date)
// in the table store. Date is the calendar date in YYYY-MM-DD form.
type ForecastRecord struct {
	City        string  `json:"city" dynamodbav:"City"`
	Date        string  `json:"date" dynamodbav:"Date"`
	Temperature float64 `json:"temperature" dynamodbav:"Temperature"`
	FeelsLike   float64 `json:"feelsLike" dynamodbav:"FeelsLike"`
	Humidity    int     `json:"humidity" dynamodbav:"Humidity"`
	Conditions  string  `json:"conditions" dynamodbav:"Description"`
}
