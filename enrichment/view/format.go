package view

import (
	"strconv"
	"strings"
)

// NA is printed in place of any missing value.
const NA = "N/A"

const (
	feetPerMeter    = 3.28084
	metersPerMile   = 1609.344
	millimetersInch = 25.4
)

// MetersToFeet converts meters to feet.
func MetersToFeet(m float64) float64 { return m * feetPerMeter }

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 { return m / metersPerMile }

// CelsiusToFahrenheit converts degrees Celsius to Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

// MillimetersToInches converts millimeters to inches.
func MillimetersToInches(mm float64) float64 { return mm / millimetersInch }

// SecondsToMinutes converts a duration in seconds to minutes.
func SecondsToMinutes(s float64) float64 { return s / 60 }

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return NA
	}
	return s
}

func number(v *float64, decimals int) string {
	if v == nil {
		return NA
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func converted(v *float64, conv func(float64) float64, decimals int, unit string) string {
	if v == nil {
		return NA
	}
	out := conv(*v)
	return strconv.FormatFloat(out, 'f', decimals, 64) + " " + unit
}

// scored prints "80 (Very Walkable)", "80", or N/A.
func scored(v *float64, description string) string {
	if v == nil {
		return NA
	}
	s := number(v, 0)
	if strings.TrimSpace(description) != "" {
		s += " (" + description + ")"
	}
	return s
}

func yesNo(v *bool) string {
	if v == nil {
		return NA
	}
	if *v {
		return "Yes"
	}
	return "No"
}

func miles(v *float64) string {
	return converted(v, MetersToMiles, 1, "mi")
}

func feet(v *float64) string {
	return converted(v, MetersToFeet, 0, "ft")
}

func identity(v float64) float64 { return v }
