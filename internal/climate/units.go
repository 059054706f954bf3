package climate

// CelsiusToFahrenheit converts a temperature in degrees Celsius.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
