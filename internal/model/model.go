// Package model holds the value types shared by the controller, the drivers
// and the actuator.
package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Location is where the forecast is asked for.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Query formats the location as "lat,lon" for forecast APIs.
func (l Location) Query() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// ConnectivityError is returned when the network could not be joined within
// the retry budget.
type ConnectivityError struct {
	SSID     string
	Attempts int
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity: join %q failed after %d attempts: %v", e.SSID, e.Attempts, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ErrForecastUnavailable marks any failure to obtain a rain forecast.
var ErrForecastUnavailable = errors.New("forecast unavailable")
