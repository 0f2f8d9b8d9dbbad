package nl2sql

import "fmt"

const promptTemplate = `You are an AI assistant that converts natural language to SQL queries.

Here is the database schema:
Table: data
Columns:
%s

Generate a SQL query for the following request:
"%s"

Only provide the SQL query.`

// BuildPrompt combines the schema description and the verbatim user
// request into the fixed instruction template. Pure; the template has
// no conditional branches.
func BuildPrompt(request, schema string) string {
	return fmt.Sprintf(promptTemplate, schema, request)
}
