package model

type Namespace struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Builtin     bool     `json:"builtin"`
	Ctime       int64    `json:"ctime"`
}

// GeneralIntent is the catch-all routing target used when classification is
// uncertain or fails.
const GeneralIntent = "general"
