// internal/workers/data-access/query-projects/queries/project.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

func ProjectDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	projectID, ok := params["projectId"].(string)
	if !ok || projectID == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var id, name, description, city, location, status, authorID string
	var createdAt, updatedAt string

	err := db.QueryRowContext(ctx, `
		SELECT id, name, description, city, location, status, author_id,
		       created_at, updated_at
		FROM projects
		WHERE id = $1`, projectID).Scan(
		&id, &name, &description,
		&city, &location, &status,
		&authorID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"id":          id,
		"name":        name,
		"description": description,
		"city":        city,
		"location":    location,
		"status":      status,
		"authorId":    authorID,
		"createdAt":   createdAt,
		"updatedAt":   updatedAt,
	}

	execTime := time.Since(start).Milliseconds()
	return result, 1, execTime, nil
}

func ProjectsByCity(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	city, ok := params["city"].(string)
	if !ok || city == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, city, location, status
		FROM projects
		WHERE LOWER(city) = LOWER($1)
		ORDER BY created_at DESC`, city)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	results, err := scanProjectRows(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func ProjectsByAuthor(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	authorID, ok := params["authorId"].(string)
	if !ok || authorID == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, city, location, status
		FROM projects
		WHERE author_id = $1
		ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	results, err := scanProjectRows(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func ProjectsByStatus(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	status, ok := params["status"].(string)
	if !ok || status == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, city, location, status
		FROM projects
		WHERE status = $1
		ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	results, err := scanProjectRows(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func scanProjectRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	for rows.Next() {
		var id, name, description, city, location, status string
		if err := rows.Scan(&id, &name, &description, &city, &location, &status); err != nil {
			return nil, err
		}
		results = append(results, map[string]interface{}{
			"id":          id,
			"name":        name,
			"description": description,
			"city":        city,
			"location":    location,
			"status":      status,
		})
	}
	return results, rows.Err()
}
