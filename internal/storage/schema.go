package storage

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	profile_visibility TEXT NOT NULL DEFAULT 'public' CHECK(profile_visibility IN ('public', 'private')),
	show_join_date BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_progress (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	date TEXT NOT NULL,
	heading TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	video_url TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	visibility TEXT NOT NULL DEFAULT 'public' CHECK(visibility IN ('public', 'private')),
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS community_interactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	progress_id TEXT NOT NULL REFERENCES daily_progress(id) ON DELETE CASCADE,
	type TEXT NOT NULL CHECK(type IN ('like', 'comment')),
	content TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_blocks (
	blocker_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	blocked_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (blocker_id, blocked_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	message TEXT NOT NULL,
	client_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_custom_achievements (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date_earned TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	issuer TEXT NOT NULL DEFAULT '',
	certificate_id TEXT NOT NULL DEFAULT '',
	external_link TEXT NOT NULL DEFAULT '',
	skills TEXT NOT NULL DEFAULT '[]',
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS achievement_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	icon TEXT NOT NULL,
	points INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_achievements (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	achievement_type TEXT NOT NULL REFERENCES achievement_types(name),
	earned_at TIMESTAMP NOT NULL,
	is_featured BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE(user_id, achievement_type)
);

CREATE TABLE IF NOT EXISTS access_requests (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL,
	reason TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	portfolio_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS password_reset_requests (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL,
	reason TEXT NOT NULL,
	additional_info TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_user_date ON daily_progress(user_id, date);
CREATE INDEX IF NOT EXISTS idx_progress_visibility ON daily_progress(visibility, created_at);
CREATE INDEX IF NOT EXISTS idx_interactions_progress ON community_interactions(progress_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_one_like_per_user ON community_interactions(user_id, progress_id) WHERE type = 'like';
CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_messages(created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`

func (s *Store) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

type milestone struct {
	name, title, description, icon string
	points                         int
}

var milestones = []milestone{
	{"first_entry", "First Step", "Logged your first progress entry", "🌱", 10},
	{"entries_10", "Getting Consistent", "Logged 10 progress entries", "📈", 25},
	{"entries_50", "Half Century", "Logged 50 progress entries", "🏅", 100},
	{"streak_3", "3 Day Streak", "Logged progress 3 days in a row", "🔥", 15},
	{"streak_7", "Week Warrior", "Logged progress 7 days in a row", "⚡", 50},
	{"streak_30", "Unstoppable", "Logged progress 30 days in a row", "🏆", 200},
}

func (s *Store) seedAchievementTypes(ctx context.Context) error {
	for _, m := range milestones {
		_, err := s.exec(ctx, `
			INSERT INTO achievement_types (id, name, title, description, icon, points)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (name) DO NOTHING
		`, newID(), m.name, m.title, m.description, m.icon, m.points)
		if err != nil {
			return fmt.Errorf("insert achievement type %s: %w", m.name, err)
		}
	}
	return nil
}
