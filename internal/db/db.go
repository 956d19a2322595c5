package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens the SQLite database at path. All access goes through a
// single connection, so callers must close rows before issuing the next
// statement.
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user'
				CHECK(role IN ('user','content-creator','moderator','admin')),
			active INTEGER NOT NULL DEFAULT 1,
			verified INTEGER NOT NULL DEFAULT 0,
			sub_tier TEXT NOT NULL DEFAULT 'free',
			sub_status TEXT NOT NULL DEFAULT 'none',
			pref_theme TEXT NOT NULL DEFAULT 'light',
			pref_notify_email INTEGER NOT NULL DEFAULT 1,
			pref_notify_push INTEGER NOT NULL DEFAULT 1,
			pref_categories TEXT NOT NULL DEFAULT '[]',
			pref_difficulty TEXT NOT NULL DEFAULT '',
			total_content_viewed INTEGER NOT NULL DEFAULT 0,
			total_likes INTEGER NOT NULL DEFAULT 0,
			total_dislikes INTEGER NOT NULL DEFAULT 0,
			categories_explored INTEGER NOT NULL DEFAULT 0,
			last_login DATETIME,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			refresh_token TEXT UNIQUE NOT NULL,
			expires_at DATETIME NOT NULL,
			refresh_expires_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS categories(
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			content_type TEXT NOT NULL DEFAULT 'hack',
			default_num_to_generate INTEGER NOT NULL DEFAULT 5,
			prompt TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS content(
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL REFERENCES categories(id),
			author_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'draft'
				CHECK(status IN ('draft','pending','published','rejected','archived')),
			content_type TEXT NOT NULL DEFAULT 'hack',
			difficulty TEXT NOT NULL DEFAULT 'beginner',
			pool TEXT NOT NULL DEFAULT 'regular'
				CHECK(pool IN ('regular','accepted','highly_liked','disliked','premium')),
			premium INTEGER NOT NULL DEFAULT 0,
			publish_date DATETIME,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_used_date DATETIME,
			last_rewrite_date DATETIME,
			moderation_notes TEXT NOT NULL DEFAULT '',
			moderated_by TEXT NOT NULL DEFAULT '',
			moderated_at DATETIME,
			views INTEGER NOT NULL DEFAULT 0,
			likes INTEGER NOT NULL DEFAULT 0,
			dislikes INTEGER NOT NULL DEFAULT 0,
			saves INTEGER NOT NULL DEFAULT 0,
			shares INTEGER NOT NULL DEFAULT 0,
			ai_generated INTEGER NOT NULL DEFAULT 0,
			ai_model TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS content_rotation_idx
			ON content(status, pool, content_type, usage_count, last_used_date);`,
		`CREATE INDEX IF NOT EXISTS content_publish_idx ON content(status, publish_date);`,
		`CREATE TABLE IF NOT EXISTS completed_content(
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content_id TEXT NOT NULL REFERENCES content(id) ON DELETE CASCADE,
			completed_at DATETIME NOT NULL,
			PRIMARY KEY(user_id, content_id)
		);`,
		`CREATE TABLE IF NOT EXISTS saved_content(
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content_id TEXT NOT NULL REFERENCES content(id) ON DELETE CASCADE,
			saved_at DATETIME NOT NULL,
			PRIMARY KEY(user_id, content_id)
		);`,
		`CREATE TABLE IF NOT EXISTS category_progress(
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			content_viewed INTEGER NOT NULL DEFAULT 0,
			last_viewed_at DATETIME NOT NULL,
			PRIMARY KEY(user_id, category_id)
		);`,
		`CREATE TABLE IF NOT EXISTS device_tokens(
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL,
			platform TEXT NOT NULL CHECK(platform IN ('ios','android','web')),
			last_used DATETIME NOT NULL,
			PRIMARY KEY(user_id, token)
		);`,
		`CREATE TABLE IF NOT EXISTS subscription_plans(
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			tier TEXT NOT NULL,
			price_cents INTEGER NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			interval TEXT NOT NULL DEFAULT 'month' CHECK(interval IN ('month','year')),
			features TEXT NOT NULL DEFAULT '[]',
			daily_limit INTEGER NOT NULL DEFAULT 5,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS prompt_templates(
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			category_id TEXT REFERENCES categories(id) ON DELETE CASCADE,
			content_type TEXT NOT NULL DEFAULT 'hack',
			system_prompt TEXT NOT NULL DEFAULT '',
			template TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		// Some default categories and plans
		`INSERT OR IGNORE INTO categories(id,name,slug,icon,color,content_type,sort_order,created_at) VALUES
			('cat-productivity','Productivity','productivity','bolt','#f59e0b','hack',1,CURRENT_TIMESTAMP),
			('cat-health','Health','health','heart','#ef4444','tip',2,CURRENT_TIMESTAMP),
			('cat-money','Money','money','wallet','#10b981','hack',3,CURRENT_TIMESTAMP),
			('cat-tech','Tech','tech','cpu','#3b82f6','hack',4,CURRENT_TIMESTAMP);`,
		`INSERT OR IGNORE INTO subscription_plans(id,name,tier,price_cents,interval,features,daily_limit,created_at) VALUES
			('plan-free','Free','free',0,'month','["5 items a day"]',5,CURRENT_TIMESTAMP),
			('plan-basic','Basic','basic',299,'month','["10 items a day"]',10,CURRENT_TIMESTAMP),
			('plan-premium','Premium','premium',799,'month','["20 items a day","Premium content"]',20,CURRENT_TIMESTAMP),
			('plan-enterprise','Enterprise','enterprise',4999,'year','["100 items a day","Premium content"]',100,CURRENT_TIMESTAMP);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
