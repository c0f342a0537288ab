package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Jobs table - one row per gloss sentence submitted for compositing
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			sentence TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('success', 'error')),
			output TEXT NOT NULL DEFAULT '',
			fps REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Job tokens table - outcome of every gloss token in a job
		`CREATE TABLE IF NOT EXISTS job_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			token TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('resolved', 'missing', 'failed')),
			clip TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_job_tokens_job_id ON job_tokens(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
