package migrations

import _ "embed"

//go:embed sql/0002_create_quiz_attempts.sql
var createQuizAttemptsSQL string

func init() {
	Migrations.MustRegister(
		exec(createQuizAttemptsSQL),
		exec(`DROP TABLE IF EXISTS quiz_attempts`),
	)
}
