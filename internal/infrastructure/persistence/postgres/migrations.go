package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_profiles_and_friendships",
			UpSQL:   migration001Up,
		},
		{
			Version: 2,
			Name:    "create_challenges",
			UpSQL:   migration002Up,
		},
		{
			Version: 3,
			Name:    "create_submissions_ratings_reactions",
			UpSQL:   migration003Up,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES AND FRIENDSHIPS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    username VARCHAR(50) NOT NULL UNIQUE,
    display_name VARCHAR(100),
    avatar_url TEXT,
    is_public_challenger BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS friendships (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    requester_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    addressee_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_friendship_status CHECK (status IN ('pending', 'accepted', 'declined')),
    CONSTRAINT no_self_friendship CHECK (requester_id <> addressee_id),
    CONSTRAINT unique_friendship UNIQUE (requester_id, addressee_id)
);

CREATE INDEX IF NOT EXISTS idx_friendships_requester ON friendships(requester_id) WHERE status = 'accepted';
CREATE INDEX IF NOT EXISTS idx_friendships_addressee ON friendships(addressee_id) WHERE status = 'accepted';
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CHALLENGES AND TEMPLATES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS challenge_templates (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    text TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS challenges (
    id UUID PRIMARY KEY,
    type VARCHAR(20) NOT NULL DEFAULT 'text',
    visibility VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    creator_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
    template_id UUID REFERENCES challenge_templates(id) ON DELETE SET NULL,
    prompt_text TEXT,
    time_limit_hours INTEGER NOT NULL DEFAULT 24,
    end_at TIMESTAMP WITH TIME ZONE NOT NULL,
    is_daily BOOLEAN NOT NULL DEFAULT FALSE,
    daily_date DATE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_challenge_type CHECK (type IN ('text', 'imitation')),
    CONSTRAINT valid_visibility CHECK (visibility IN ('private', 'public')),
    CONSTRAINT valid_challenge_status CHECK (status IN ('draft', 'active', 'ended', 'cancelled')),
    CONSTRAINT daily_has_date CHECK (NOT is_daily OR daily_date IS NOT NULL)
);

-- One daily challenge per calendar date.
CREATE UNIQUE INDEX IF NOT EXISTS idx_challenges_daily_date ON challenges(daily_date) WHERE is_daily;

CREATE INDEX IF NOT EXISTS idx_challenges_visibility_status ON challenges(visibility, status);
CREATE INDEX IF NOT EXISTS idx_challenges_created_at ON challenges(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_challenges_end_at ON challenges(end_at DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: SUBMISSIONS, RATINGS, REACTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS submissions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    photo_path TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT unique_submission_per_user UNIQUE (challenge_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id);

CREATE TABLE IF NOT EXISTS ratings (
    submission_id UUID NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    rater_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    stars SMALLINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (submission_id, rater_id),
    CONSTRAINT valid_stars CHECK (stars BETWEEN 0 AND 5)
);

CREATE TABLE IF NOT EXISTS reactions (
    submission_id UUID NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    type VARCHAR(20) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (submission_id, user_id, type),
    CONSTRAINT valid_reaction_type CHECK (type IN ('flame', 'heart', 'wow'))
);
`
