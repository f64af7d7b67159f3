package api

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	achievementHandler achievementHandler
	projectHandler     projectHandler
	eventHandler       eventHandler
	teamHandler        teamHandler
	healthHandler      healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error  string `json:"error" example:"missing required field: Missing required field: title"`
	Status string `json:"status" example:"error"`
	Field  string `json:"field,omitempty" example:"title"`
	Cause  string `json:"cause,omitempty" example:"database query failed -> sql: database is closed"`
}

// CreatedResponse wraps a freshly inserted record.
// @Description Successful create response
type CreatedResponse struct {
	Message string `json:"message" example:"Achievement created successfully"`
	Data    any    `json:"data"`
}
