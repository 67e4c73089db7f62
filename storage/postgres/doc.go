// Package postgres implements storage.InsightRepository on PostgreSQL with the
// pgvector extension. Connections go through database/sql using the pgx
// driver.
package postgres
