package dto

import "encoding/json"

// ImportItem is one entity in an import batch. Data holds the entity body
// as sent by the client; the handler decodes it into the model matching
// Table.
type ImportItem struct {
	Table string          `json:"table" binding:"required"`
	Data  json.RawMessage `json:"data" binding:"required"`
}

// MatchRule declares which columns identify an existing row of a table.
type MatchRule struct {
	Table   string   `json:"table" binding:"required"`
	Columns []string `json:"columns" binding:"required,min=1"`
}

// ImportRequest is the body of POST /imports.
type ImportRequest struct {
	Items            []ImportItem `json:"items" binding:"required,min=1"`
	Rules            []MatchRule  `json:"rules,omitempty"`
	Source           string       `json:"source,omitempty"`
	RememberPrevious bool         `json:"rememberPrevious,omitempty"`
}

// ImportRunListRequest holds query parameters for listing import runs.
type ImportRunListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}
