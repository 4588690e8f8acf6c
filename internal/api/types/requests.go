package types

import "github.com/circuit-studio/engine/internal/circuit"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProjectCreateRequest struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

type ProjectUpdateRequest struct {
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
	Archived    *bool          `json:"archived"`
}

// RevisionSaveRequest carries a full circuit graph to store as the
// project's next revision.
type RevisionSaveRequest struct {
	Graph circuit.Graph `json:"graph" validate:"required"`
}

// ValidateRequest carries an inline graph for synchronous validation
// or correction.
type ValidateRequest struct {
	Graph         circuit.Graph `json:"graph" validate:"required"`
	AutoCorrect   bool          `json:"auto_correct"`
	MaxIterations int           `json:"max_iterations" validate:"gte=0,lte=10"`
}

type RunCreateRequest struct {
	Description string `json:"description" validate:"required,min=3"`
}
