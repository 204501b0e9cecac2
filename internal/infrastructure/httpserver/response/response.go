package response

import "github.com/labstack/echo/v4"

// Envelope is the standard API response shape:
// {"status": "success"|"error", "data": ..., "error": ..., "details": ...}
type Envelope struct {
	Status  string         `json:"status"`
	Data    any            `json:"data"`
	Error   any            `json:"error"`
	Details map[string]any `json:"details"`
}

// Success writes a success envelope with the given payload.
func Success(c echo.Context, code int, data any) error {
	return c.JSON(code, Envelope{Status: "success", Data: data})
}

// Error writes an error envelope, sets the status code, and stops further
// processing of the request.
func Error(c echo.Context, code int, message string, details map[string]any) error {
	return c.JSON(code, Envelope{Status: "error", Error: message, Details: details})
}
