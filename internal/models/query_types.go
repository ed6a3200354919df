// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeProjectDetails   QueryType = "project_details"
	QueryTypeProjectsByCity   QueryType = "projects_by_city"
	QueryTypeProjectsByAuthor QueryType = "projects_by_author"
	QueryTypeProjectsByStatus QueryType = "projects_by_status"
)
